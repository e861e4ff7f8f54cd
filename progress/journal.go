// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"fmt"
)

// Journal is the deterministic core of a task progress log: an ordered
// append-only event list with structural duplicate suppression and
// seal-on-terminal. It takes no locks and performs no I/O, which keeps it
// safe to host inside deterministically replayed code. Concurrent callers
// use Log, which wraps a Journal.
//
// Events are stored in arrival order. Sequence numbers only identify
// re-deliveries; they never reorder the log.
type Journal struct {
	taskID  string
	events  []Event
	applied map[uint64]struct{}
	maxSeq  uint64
	sealed  bool
}

// NewJournal creates an empty journal for a task.
func NewJournal(taskID string) *Journal {
	return &Journal{
		taskID:  taskID,
		applied: make(map[uint64]struct{}),
	}
}

// TaskID returns the task the journal belongs to.
func (j *Journal) TaskID() string {
	return j.taskID
}

// Append adds an event to the journal.
//
// A re-delivered sequence number returns ErrDuplicateEvent and leaves the
// journal unchanged. An append after the journal sealed returns
// ErrLogSealed and is equally a no-op. Appending an event with a terminal
// status seals the journal.
func (j *Journal) Append(event Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid progress event: %w", err)
	}
	if event.TaskID != j.taskID {
		return fmt.Errorf("progress event for task %q appended to log of task %q", event.TaskID, j.taskID)
	}
	if _, ok := j.applied[event.Seq]; ok {
		return ErrDuplicateEvent
	}
	if j.sealed {
		return ErrLogSealed
	}

	j.events = append(j.events, event)
	j.applied[event.Seq] = struct{}{}
	if event.Seq > j.maxSeq {
		j.maxSeq = event.Seq
	}
	if event.Terminal() {
		j.sealed = true
	}

	return nil
}

// Len returns the number of applied events.
func (j *Journal) Len() int {
	return len(j.events)
}

// Sealed reports whether the journal accepts no further appends.
func (j *Journal) Sealed() bool {
	return j.sealed
}

// Seal closes the journal without requiring a terminal event. It is
// idempotent. Readers of a journal sealed this way see a task that ended
// without reporting a terminal state.
func (j *Journal) Seal() {
	j.sealed = true
}

// Events returns a copy of all applied events in append order.
func (j *Journal) Events() []Event {
	return j.EventsFrom(0)
}

// EventsFrom returns a copy of the events at index from and beyond.
func (j *Journal) EventsFrom(from int) []Event {
	if from < 0 {
		from = 0
	}
	if from >= len(j.events) {
		return nil
	}

	out := make([]Event, len(j.events)-from)
	copy(out, j.events[from:])
	return out
}

// Terminal returns the event that sealed the journal with a terminal
// status, if one exists.
func (j *Journal) Terminal() (Event, bool) {
	for i := len(j.events) - 1; i >= 0; i-- {
		if j.events[i].Terminal() {
			return j.events[i], true
		}
	}
	return Event{}, false
}

// NextSeq returns the sequence number an executor resuming this task
// should assign next: one past the highest applied sequence number.
func (j *Journal) NextSeq() uint64 {
	return j.maxSeq + 1
}

// Snapshot folds the journal into its current point-in-time view.
func (j *Journal) Snapshot() Snapshot {
	return Fold(j.taskID, j.events, j.sealed)
}
