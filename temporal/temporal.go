// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package temporal adapts the progress bridge to the Temporal
// durable-execution engine. A task runs as one workflow that owns its
// progress journal; the agent handler runs inside an activity and
// reports through a relay that signals the workflow by task id. Host
// processes follow a task by querying the journal into a local replica
// log and serving sessions from it.
package temporal

import (
	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
)

// Registered names and defaults. Worker and service sides must agree on
// these, so they are constants rather than configuration.
const (
	// DefaultTaskQueue is the task queue agents listen on.
	DefaultTaskQueue = "agent-tasks"

	// WorkflowTypeTask is the registered name of TaskWorkflow.
	WorkflowTypeTask = "bridge-task"

	// ActivityAgentRun is the registered name of the agent-run activity.
	ActivityAgentRun = "agent-run"

	// SignalProgressReport is the signal channel carrying progress
	// events from the activity-side relay into the workflow journal.
	SignalProgressReport = "progress-report"

	// QueryProgressEvents reads journal events from an index onward.
	// Its single argument is the starting index.
	QueryProgressEvents = "get-progress-events"

	// QueryProgressSnapshot folds the journal into its current view.
	QueryProgressSnapshot = "get-progress-snapshot"
)

// TaskInput starts one task workflow.
type TaskInput struct {
	// Agent names the registered executor.
	Agent string `json:"agent"`

	// Message is the user message that starts the task.
	Message bridge.Message `json:"message"`
}

// TaskResult is the workflow return value: the primary completion path,
// authoritative regardless of what the relay managed to deliver.
type TaskResult struct {
	// State is the terminal task state.
	State bridge.TaskState `json:"state"`

	// Artifacts holds the final artifacts of the run.
	Artifacts []bridge.Artifact `json:"artifacts,omitzero"`

	// Error is the failure detail of a failed run.
	Error string `json:"error,omitzero"`
}

// RunInput is the agent-run activity argument.
type RunInput struct {
	// Agent names the registered executor.
	Agent string `json:"agent"`

	// Request is the invocation handed to the handler.
	Request agent.Request `json:"request"`
}

// RunOutput is the agent-run activity result.
type RunOutput struct {
	// Response is the handler's final output.
	Response agent.Response `json:"response"`

	// NextSeq is the sequence number after the highest one the
	// activity's reporter assigned. The workflow stamps it on the
	// terminal event so the terminal never collides with a relayed
	// sequence number, delivered or lost.
	NextSeq uint64 `json:"nextSeq"`
}
