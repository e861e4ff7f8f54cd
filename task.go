// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
)

// KindTask is the kind discriminator carried by Task.
const KindTask = "task"

// MetadataProgress is the Task metadata key carrying the high-water
// progress value in [0.0, 1.0].
const MetadataProgress = "progress"

// MetadataError is the Task metadata key carrying the failure detail of
// a failed task.
const MetadataError = "error"

// MetadataAgent is the send-params metadata key naming the agent a
// message is addressed to.
const MetadataAgent = "agent"

// Task is the point-in-time view of one unit of asynchronous work.
type Task struct {
	// ID is the durable, opaque identifier for the task.
	ID string `json:"id"`

	// ContextID groups related interactions.
	ContextID string `json:"contextId"`

	// Kind is always "task".
	Kind string `json:"kind"`

	// Status is the current status of the task.
	Status TaskStatus `json:"status"`

	// Artifacts collected so far, one entry per artifact id.
	Artifacts []*Artifact `json:"artifacts,omitzero"`

	// History holds the messages exchanged for the task.
	History []Message `json:"history,omitzero"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTask creates a Task in the submitted state.
func NewTask(id, contextID string) *Task {
	return &Task{
		ID:        id,
		ContextID: contextID,
		Kind:      KindTask,
		Status:    TaskStatus{State: TaskStateSubmitted},
	}
}

// Validate ensures the Task is in a valid state.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if !t.Status.State.IsValid() {
		return fmt.Errorf("unknown task state: %q", t.Status.State)
	}

	return nil
}

// AgentCapabilities describes optional capabilities an agent supports.
type AgentCapabilities struct {
	// Streaming is true when the agent emits artifact chunks over a
	// push feed.
	Streaming bool `json:"streaming,omitzero"`

	// PushNotifications is true when the agent can notify clients of
	// updates through an out-of-band channel.
	PushNotifications bool `json:"pushNotifications,omitzero"`
}

// AgentSkill advertises one capability of an agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitzero"`
	Tags        []string `json:"tags,omitzero"`
}

// AgentCard conveys the agent's identity, endpoint, and capabilities.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitzero"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitzero"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitzero"`
	Skills             []AgentSkill      `json:"skills,omitzero"`
}
