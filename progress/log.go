// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"context"
	"sync"
)

// Log is the concurrent task progress log: a Journal guarded by a mutex,
// plus a broadcast that wakes blocked readers on every append and on
// seal. One writer appends; any number of readers cursor over the log
// independently. Readers never consume events, so a slow reader cannot
// block the writer or other readers.
type Log struct {
	mu      sync.Mutex
	journal *Journal
	wake    chan struct{}
}

// NewLog creates an empty log for a task.
func NewLog(taskID string) *Log {
	return &Log{
		journal: NewJournal(taskID),
		wake:    make(chan struct{}),
	}
}

// TaskID returns the task the log belongs to.
func (l *Log) TaskID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.TaskID()
}

// Append adds an event to the log and wakes blocked readers. It returns
// ErrDuplicateEvent for re-delivered sequence numbers and ErrLogSealed
// after the log sealed; both leave the log unchanged.
func (l *Log) Append(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.journal.Append(event); err != nil {
		return err
	}
	l.broadcastLocked()
	return nil
}

// Read returns a copy of the events at index from and beyond, without
// blocking, together with the sealed flag observed at the same instant.
func (l *Log) Read(from int) ([]Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.EventsFrom(from), l.journal.Sealed()
}

// Wait returns the events at index from and beyond, blocking until at
// least one exists. Once the log is sealed and drained past from, Wait
// returns ErrLogSealed. Context cancellation returns ctx.Err().
func (l *Log) Wait(ctx context.Context, from int) ([]Event, error) {
	for {
		l.mu.Lock()
		events := l.journal.EventsFrom(from)
		sealed := l.journal.Sealed()
		wake := l.wake
		l.mu.Unlock()

		if len(events) > 0 {
			return events, nil
		}
		if sealed {
			return nil, ErrLogSealed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

// Close seals the log without a terminal event and wakes blocked
// readers. It is idempotent and marks an anomalous end: readers of a log
// closed this way observe the unknown terminal marker.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.journal.Sealed() {
		return
	}
	l.journal.Seal()
	l.broadcastLocked()
}

// Sealed reports whether the log accepts no further appends.
func (l *Log) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.Sealed()
}

// Len returns the number of applied events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.Len()
}

// Events returns a copy of all applied events in append order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.Events()
}

// Terminal returns the event that sealed the log with a terminal status,
// if one exists.
func (l *Log) Terminal() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.Terminal()
}

// NextSeq returns one past the highest applied sequence number.
func (l *Log) NextSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.NextSeq()
}

// Snapshot folds the log into its current point-in-time view.
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.journal.Snapshot()
}

// broadcastLocked wakes every reader blocked in Wait. Callers hold l.mu.
func (l *Log) broadcastLocked() {
	close(l.wake)
	l.wake = make(chan struct{})
}
