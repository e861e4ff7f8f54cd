// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-a2a/bridge"
)

// Reporter is the executor-facing facade for publishing progress. It
// assigns the per-task sequence numbers that make appends idempotent,
// stamps event time exactly once, keeps the executor's own progress from
// regressing, and latches after a terminal report.
//
// Reporting is best effort: a failed delivery is logged and dropped, the
// sequence number is not reused, and the executor still returns its
// result through its primary completion channel. Consumers degrade to
// the polling path until delivery recovers.
type Reporter struct {
	taskID string
	relay  Relay
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastSeq  uint64
	progress float64
	terminal bool
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithSeqBase sets the sequence number already consumed before this
// reporter starts; the first emitted event carries base+1. A retried
// executor constructed with the same base re-emits the same sequence
// numbers, which the log drops as duplicates.
func WithSeqBase(base uint64) ReporterOption {
	return func(r *Reporter) {
		r.lastSeq = base
	}
}

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

// WithLogger sets the logger used for dropped deliveries.
func WithLogger(logger *slog.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// NewReporter creates a Reporter for a task over the given relay.
func NewReporter(taskID string, relay Relay, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		taskID: taskID,
		relay:  relay,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// TaskID returns the task the reporter publishes for.
func (r *Reporter) TaskID() string {
	return r.taskID
}

// NextSeq returns the sequence number the next emitted event will carry.
func (r *Reporter) NextSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq + 1
}

// LastSeq returns the highest sequence number assigned so far.
func (r *Reporter) LastSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq
}

// Progress returns the high-water progress published so far.
func (r *Reporter) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Terminal reports whether a terminal state was already published.
func (r *Reporter) Terminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminal
}

// Working publishes a working status with the given progress fraction.
func (r *Reporter) Working(ctx context.Context, progress float64) error {
	return r.emit(ctx, bridge.TaskStateWorking, progress, nil, "")
}

// Chunk publishes a working status carrying artifact chunks.
func (r *Reporter) Chunk(ctx context.Context, progress float64, chunks ...Chunk) error {
	return r.emit(ctx, bridge.TaskStateWorking, progress, chunks, "")
}

// Complete publishes the completed terminal state with progress 1,
// optionally carrying final artifact chunks.
func (r *Reporter) Complete(ctx context.Context, chunks ...Chunk) error {
	return r.emit(ctx, bridge.TaskStateCompleted, 1, chunks, "")
}

// Fail publishes the failed terminal state with the given detail.
// Progress holds at its high-water value.
func (r *Reporter) Fail(ctx context.Context, detail string) error {
	return r.emit(ctx, bridge.TaskStateFailed, -1, nil, detail)
}

// Cancel publishes the canceled terminal state. Progress holds at its
// high-water value.
func (r *Reporter) Cancel(ctx context.Context) error {
	return r.emit(ctx, bridge.TaskStateCanceled, -1, nil, "")
}

// emit assigns the next sequence number and delivers one event. A
// progress below the reporter's high-water value, including the -1 used
// by terminal emits that hold progress, is raised to the high-water
// value.
func (r *Reporter) emit(ctx context.Context, state bridge.TaskState, progress float64, chunks []Chunk, detail string) error {
	r.mu.Lock()
	if r.terminal {
		r.mu.Unlock()
		return ErrTerminal
	}
	if progress < r.progress {
		progress = r.progress
	}
	if progress > 1 {
		progress = 1
	}
	r.progress = progress
	r.lastSeq++
	seq := r.lastSeq
	if state.IsTerminal() {
		r.terminal = true
	}
	r.mu.Unlock()

	event := Event{
		TaskID:    r.taskID,
		Seq:       seq,
		Status:    state,
		Progress:  progress,
		Error:     detail,
		Timestamp: bridge.FormatTimestamp(r.now()),
	}
	if len(chunks) > 0 {
		event.Result = &Result{Artifacts: chunks}
	}

	if err := r.relay.Deliver(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "dropping progress event after delivery failure",
			slog.String("task_id", r.taskID),
			slog.Uint64("seq", seq),
			slog.String("status", string(state)),
			slog.Any("error", err),
		)
	}

	return nil
}
