// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the contract between task executors and the
// runtimes that host them. An executor receives one request, reports
// incremental progress through a Reporter, and returns its final
// artifacts on the ordinary return path. The return path stays the
// source of truth: a run whose progress reports never arrived still
// completes with correct final output.
package agent

import (
	"context"
	"fmt"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/progress"
)

// Request carries one task invocation to a handler.
type Request struct {
	// TaskID is the durable task identity.
	TaskID string `json:"taskId"`

	// ContextID groups related interactions.
	ContextID string `json:"contextId"`

	// SeqBase is the highest sequence number already applied to the
	// task's progress log. A Reporter seeded with it continues the
	// task's sequence space instead of restarting it, so a retried run
	// re-sends identical numbers and redelivery stays invisible.
	SeqBase uint64 `json:"seqBase"`

	// Message is the user message that started the task.
	Message bridge.Message `json:"message"`
}

// Response is a handler's final output.
type Response struct {
	// Artifacts holds the completed artifacts of the run.
	Artifacts []bridge.Artifact `json:"artifacts,omitzero"`
}

// Handler executes one task. Incremental facts go through the reporter;
// the returned Response travels on the primary completion path.
type Handler func(ctx context.Context, req Request, reporter *progress.Reporter) (Response, error)

// Agent declares an executor. Streaming is declared here rather than
// detected: it decides the capability advertised on the agent card.
type Agent struct {
	// Name is the unique registration name.
	Name string

	// Description is shown on the agent card.
	Description string

	// Streaming declares that the handler emits incremental artifact
	// chunks while running.
	Streaming bool

	// Handler runs the task.
	Handler Handler
}

// Validate ensures the agent declaration is usable.
func (a Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	if a.Handler == nil {
		return fmt.Errorf("agent %q has no handler", a.Name)
	}
	return nil
}

// Index validates a set of agents and keys them by name.
func Index(agents []Agent) (map[string]Agent, error) {
	out := make(map[string]Agent, len(agents))
	for _, a := range agents {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, ok := out[a.Name]; ok {
			return nil, fmt.Errorf("agent %q registered twice", a.Name)
		}
		out[a.Name] = a
	}
	return out, nil
}
