// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"

	"github.com/go-json-experiment/json"
)

// Wire event kinds.
const (
	// KindStatusUpdate identifies a task status update event.
	KindStatusUpdate = "status-update"

	// KindArtifactUpdate identifies a task artifact update event.
	KindArtifactUpdate = "artifact-update"
)

// StreamEvent is the unified interface for the two wire event kinds
// delivered to push subscribers.
type StreamEvent interface {
	// EventType returns the wire kind of the event.
	EventType() string

	// EventData returns the underlying data of the event.
	EventData() any

	// Validate ensures the event is in a valid state.
	Validate() error

	// String returns a string representation of the event.
	String() string
}

// TaskStatusUpdateEvent reports a task status transition to subscribers.
type TaskStatusUpdateEvent struct {
	// TaskID identifies the task.
	TaskID string `json:"taskId"`

	// ContextID groups related interactions.
	ContextID string `json:"contextId"`

	// Kind is always "status-update".
	Kind string `json:"kind"`

	// Status carries the new state and its event-time timestamp.
	Status *TaskStatus `json:"status"`

	// Final is true on the single terminal status update of a task.
	Final bool `json:"final"`
}

var _ StreamEvent = (*TaskStatusUpdateEvent)(nil)

// NewTaskStatusUpdateEvent creates a new TaskStatusUpdateEvent.
func NewTaskStatusUpdateEvent(taskID, contextID string, status TaskStatus, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      KindStatusUpdate,
		Status:    &status,
		Final:     final,
	}
}

// EventType returns the wire kind for TaskStatusUpdateEvent.
func (e *TaskStatusUpdateEvent) EventType() string {
	return KindStatusUpdate
}

// EventData returns the underlying status update data.
func (e *TaskStatusUpdateEvent) EventData() any {
	return e
}

// Validate ensures the TaskStatusUpdateEvent is valid.
func (e *TaskStatusUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("status update task id cannot be empty")
	}
	if e.Kind != KindStatusUpdate {
		return fmt.Errorf("status update kind must be %q, got %q", KindStatusUpdate, e.Kind)
	}
	if e.Status == nil {
		return fmt.Errorf("status update status cannot be nil")
	}
	if !e.Status.State.IsValid() {
		return fmt.Errorf("unknown task state: %q", e.Status.State)
	}
	if e.Final && !e.Status.State.IsTerminal() {
		return fmt.Errorf("final status update must carry a terminal state, got %q", e.Status.State)
	}

	return nil
}

// String returns a string representation of the TaskStatusUpdateEvent.
func (e *TaskStatusUpdateEvent) String() string {
	state := TaskState("nil")
	if e.Status != nil {
		state = e.Status.State
	}
	return fmt.Sprintf("TaskStatusUpdateEvent{TaskID: %s, State: %s, Final: %t}", e.TaskID, state, e.Final)
}

// TaskArtifactUpdateEvent delivers one artifact chunk to subscribers.
type TaskArtifactUpdateEvent struct {
	// TaskID identifies the task.
	TaskID string `json:"taskId"`

	// ContextID groups related interactions.
	ContextID string `json:"contextId"`

	// Kind is always "artifact-update".
	Kind string `json:"kind"`

	// Artifact carries the chunk content under its stable artifact id.
	Artifact *Artifact `json:"artifact"`

	// Append is true when the chunk extends the previously delivered
	// parts rather than replacing them.
	Append bool `json:"append,omitzero"`

	// LastChunk is true on the final chunk of the artifact. It appears
	// at most once per artifact id.
	LastChunk bool `json:"lastChunk,omitzero"`
}

var _ StreamEvent = (*TaskArtifactUpdateEvent)(nil)

// NewTaskArtifactUpdateEvent creates a new TaskArtifactUpdateEvent.
func NewTaskArtifactUpdateEvent(taskID, contextID string, artifact *Artifact, append, lastChunk bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      KindArtifactUpdate,
		Artifact:  artifact,
		Append:    append,
		LastChunk: lastChunk,
	}
}

// EventType returns the wire kind for TaskArtifactUpdateEvent.
func (e *TaskArtifactUpdateEvent) EventType() string {
	return KindArtifactUpdate
}

// EventData returns the underlying artifact update data.
func (e *TaskArtifactUpdateEvent) EventData() any {
	return e
}

// Validate ensures the TaskArtifactUpdateEvent is valid.
func (e *TaskArtifactUpdateEvent) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("artifact update task id cannot be empty")
	}
	if e.Kind != KindArtifactUpdate {
		return fmt.Errorf("artifact update kind must be %q, got %q", KindArtifactUpdate, e.Kind)
	}
	if e.Artifact == nil {
		return fmt.Errorf("artifact update artifact cannot be nil")
	}

	return e.Artifact.Validate()
}

// String returns a string representation of the TaskArtifactUpdateEvent.
func (e *TaskArtifactUpdateEvent) String() string {
	artifactID := "nil"
	if e.Artifact != nil {
		artifactID = e.Artifact.ArtifactID
	}
	return fmt.Sprintf("TaskArtifactUpdateEvent{TaskID: %s, ArtifactID: %s, Append: %t, LastChunk: %t}",
		e.TaskID, artifactID, e.Append, e.LastChunk)
}

// IsFinalEvent reports whether the event closes its stream: a status
// update carrying Final=true.
func IsFinalEvent(event StreamEvent) bool {
	if e, ok := event.(*TaskStatusUpdateEvent); ok {
		return e.Final
	}
	return false
}

// UnmarshalStreamEvent decodes one wire event by its kind discriminator.
func UnmarshalStreamEvent(data []byte) (StreamEvent, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("probing event kind: %w", err)
	}

	switch probe.Kind {
	case KindStatusUpdate:
		event := &TaskStatusUpdateEvent{}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("unmarshaling status update: %w", err)
		}
		return event, nil

	case KindArtifactUpdate:
		event := &TaskArtifactUpdateEvent{}
		if err := json.Unmarshal(data, event); err != nil {
			return nil, fmt.Errorf("unmarshaling artifact update: %w", err)
		}
		return event, nil

	default:
		return nil, fmt.Errorf("unknown event kind %q", probe.Kind)
	}
}
