// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
)

// Activities hosts the agent handlers on the worker side.
type Activities struct {
	relay  progress.Relay
	agents map[string]agent.Agent
	logger *slog.Logger
}

// NewActivities creates the activity set for the given agents, relaying
// progress through the Temporal client.
func NewActivities(c client.Client, agents map[string]agent.Agent, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		relay:  NewRelay(c),
		agents: agents,
		logger: logger,
	}
}

// Run executes one agent handler. The handler reports progress through
// a reporter seeded with the workflow's sequence base; a retried run
// re-sends identical sequence numbers and the journal drops them. Relay
// failures are logged and dropped by the reporter, never failing the
// run: the returned output is the primary completion path.
func (a *Activities) Run(ctx context.Context, input RunInput) (RunOutput, error) {
	hosted, ok := a.agents[input.Agent]
	if !ok {
		return RunOutput{}, fmt.Errorf("running task %s: %w", input.Request.TaskID, bridge.ErrUnknownAgent)
	}

	reporter := progress.NewReporter(input.Request.TaskID, a.relay,
		progress.WithSeqBase(input.Request.SeqBase),
		progress.WithLogger(a.logger),
	)

	a.logger.InfoContext(ctx, "running agent task",
		slog.String("agent", input.Agent),
		slog.String("task_id", input.Request.TaskID),
		slog.Uint64("seq_base", input.Request.SeqBase))

	response, err := hosted.Handler(ctx, input.Request, reporter)
	if err != nil {
		return RunOutput{NextSeq: reporter.LastSeq() + 1}, err
	}

	return RunOutput{
		Response: response,
		NextSeq:  reporter.LastSeq() + 1,
	}, nil
}
