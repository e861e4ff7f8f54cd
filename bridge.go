// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge relays progress signals from asynchronously executing
// tasks into A2A-style wire events for push subscribers and point-in-time
// snapshots for polling clients.
package bridge

// Version is the current version of the bridge protocol surface.
const Version = "0.1.0"

// TaskState represents the state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been submitted.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateCompleted indicates the task has been completed.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the task has failed.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task has been canceled.
	TaskStateCanceled TaskState = "canceled"

	// TaskStateUnknown indicates the task ended without reporting a
	// terminal state. Consumers receive it when a progress log seals
	// anomalously.
	TaskStateUnknown TaskState = "unknown"
)

// IsTerminal reports whether the state is absorbing. Unknown counts as
// terminal: it is the marker for a task that ended without reporting one.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateUnknown:
		return true
	default:
		return false
	}
}

// IsValid reports whether the state is a member of the closed enumeration.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateUnknown:
		return true
	default:
		return false
	}
}

// TaskStatus represents the status of a task at a point in time.
type TaskStatus struct {
	// State of the task.
	State TaskState `json:"state"`

	// Additional status detail for the client.
	Message *Message `json:"message,omitzero"`

	// ISO 8601 datetime string for when the status was recorded.
	Timestamp string `json:"timestamp,omitzero"`
}
