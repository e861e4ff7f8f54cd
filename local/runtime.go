// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package local runs agents in-process: every task gets an arena-owned
// progress log and an executor goroutine that reports through a loopback
// relay. The runtime serves the same backend surface the Temporal
// service does, which makes it the engine of the examples and the test
// double for everything above the log.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
	"github.com/go-a2a/bridge/stream"
)

// Runtime hosts agents in the calling process.
//
// StartTask creates the task's log, registers it in the runtime arena,
// and runs the declared handler on its own goroutine. The handler
// reports progress through a Reporter over the arena loopback relay; the
// runtime itself writes the submitted, working, and terminal events on
// the primary path, directly to the log. A sealed log is evicted once
// the last session over it releases its pin.
type Runtime struct {
	arena  *progress.Arena
	relay  progress.Relay
	agents map[string]agent.Agent
	logger *slog.Logger
	now    func() time.Time
	idle   time.Duration

	mu    sync.Mutex
	tasks map[string]*taskEntry
}

// taskEntry tracks one running or finished task.
type taskEntry struct {
	agentName string
	message   bridge.Message
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithClock sets the time source used to stamp runtime-written events.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		r.now = now
	}
}

// WithIdleTimeout sets the idle timeout applied to sessions the runtime
// opens. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		r.idle = d
	}
}

// NewRuntime creates a runtime hosting the given agents.
func NewRuntime(agents []agent.Agent, opts ...Option) (*Runtime, error) {
	index, err := agent.Index(agents)
	if err != nil {
		return nil, err
	}

	arena := progress.NewArena()
	r := &Runtime{
		arena:  arena,
		relay:  progress.NewArenaRelay(arena),
		agents: index,
		logger: slog.Default(),
		now:    time.Now,
		tasks:  make(map[string]*taskEntry),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Agents returns the hosted agent declarations.
func (r *Runtime) Agents() []agent.Agent {
	out := make([]agent.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// StartTask starts one task on the named agent and returns its initial
// view. The handler runs on its own goroutine; its final return value
// travels to the log on the primary path, so the task completes
// correctly even when every relayed report was lost.
func (r *Runtime) StartTask(ctx context.Context, agentName string, message bridge.Message) (*bridge.Task, error) {
	hosted, ok := r.agents[agentName]
	if !ok {
		return nil, fmt.Errorf("starting task on agent %q: %w", agentName, bridge.ErrUnknownAgent)
	}
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("starting task on agent %q: %w", agentName, err)
	}

	taskID := uuid.NewString()
	contextID := bridge.ContextIDFor(taskID)

	log, err := r.arena.Create(taskID)
	if err != nil {
		return nil, fmt.Errorf("starting task %s: %w", taskID, err)
	}

	now := bridge.FormatTimestamp(r.now())
	r.appendDirect(log, progress.Event{
		TaskID: taskID, Seq: 1, Status: bridge.TaskStateSubmitted, Timestamp: now,
	})
	r.appendDirect(log, progress.Event{
		TaskID: taskID, Seq: 2, Status: bridge.TaskStateWorking, Progress: 0.1, Timestamp: now,
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := &taskEntry{
		agentName: agentName,
		message:   message,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.mu.Lock()
	r.tasks[taskID] = entry
	r.mu.Unlock()

	go r.execute(runCtx, hosted, agent.Request{
		TaskID:    taskID,
		ContextID: contextID,
		SeqBase:   log.NextSeq() - 1,
		Message:   message,
	}, log, entry)

	task := bridge.NewTask(taskID, contextID)
	task.Status = bridge.TaskStatus{State: bridge.TaskStateSubmitted, Timestamp: now}
	task.History = []bridge.Message{message}
	return task, nil
}

// execute runs one handler and writes the terminal event.
func (r *Runtime) execute(ctx context.Context, hosted agent.Agent, req agent.Request, log *progress.Log, entry *taskEntry) {
	defer close(entry.done)
	defer entry.cancel()

	reporter := progress.NewReporter(req.TaskID, r.relay,
		progress.WithSeqBase(req.SeqBase),
		progress.WithClock(r.now),
		progress.WithLogger(r.logger),
	)

	resp, err := hosted.Handler(ctx, req, reporter)

	terminal := progress.Event{
		TaskID:    req.TaskID,
		Seq:       reporter.LastSeq() + 1,
		Status:    bridge.TaskStateCompleted,
		Progress:  1,
		Timestamp: bridge.FormatTimestamp(r.now()),
	}
	switch {
	case err == nil:
		if len(resp.Artifacts) > 0 {
			result := &progress.Result{}
			for _, artifact := range resp.Artifacts {
				result.Artifacts = append(result.Artifacts, progress.ArtifactChunk(artifact))
			}
			terminal.Result = result
		}

	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		terminal.Status = bridge.TaskStateCanceled
		terminal.Progress = reporter.Progress()

	default:
		terminal.Status = bridge.TaskStateFailed
		terminal.Progress = reporter.Progress()
		terminal.Error = err.Error()
	}

	r.appendDirect(log, terminal)
}

// appendDirect writes an event straight to the log, bypassing the relay.
// Duplicates and sealed-log writes are logged and dropped.
func (r *Runtime) appendDirect(log *progress.Log, event progress.Event) {
	err := log.Append(event)
	switch {
	case err == nil:
	case errors.Is(err, progress.ErrDuplicateEvent), errors.Is(err, progress.ErrLogSealed):
		r.logger.Warn("dropping progress event",
			slog.String("task_id", event.TaskID),
			slog.Uint64("seq", event.Seq),
			slog.Any("error", err))
	default:
		r.logger.Error("progress event rejected",
			slog.String("task_id", event.TaskID),
			slog.Uint64("seq", event.Seq),
			slog.Any("error", err))
	}
}

// GetTask returns the point-in-time view of a task.
func (r *Runtime) GetTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	snapshot, err := r.Snapshot(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task := snapshot.Task()
	r.mu.Lock()
	if entry, ok := r.tasks[taskID]; ok {
		task.History = []bridge.Message{entry.message}
	}
	r.mu.Unlock()
	return task, nil
}

// Snapshot folds the task's log into its current view.
func (r *Runtime) Snapshot(_ context.Context, taskID string) (progress.Snapshot, error) {
	log, err := r.arena.Get(taskID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	return log.Snapshot(), nil
}

// CancelTask cancels a running task and returns its view once the
// executor has acknowledged by writing the terminal event. Canceling a
// task already in a terminal state returns
// [bridge.ErrTaskNotCancelable].
func (r *Runtime) CancelTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	log, err := r.arena.Get(taskID)
	if err != nil {
		return nil, err
	}
	if log.Sealed() {
		return nil, fmt.Errorf("canceling task %s: %w", taskID, bridge.ErrTaskNotCancelable)
	}

	r.mu.Lock()
	entry, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return nil, bridge.ErrTaskNotFound
	}

	entry.cancel()
	select {
	case <-entry.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.GetTask(ctx, taskID)
}

// OpenStream opens a push session over the task's log. The session pins
// the log in the arena for its lifetime. The runtime's logs are the
// source of truth, so draining a session never discards one; eviction
// is the owner's explicit call.
func (r *Runtime) OpenStream(_ context.Context, taskID string) (stream.EventStream, error) {
	log, err := r.arena.Acquire(taskID)
	if err != nil {
		return nil, err
	}

	opts := []stream.SessionOption{
		stream.WithSessionLogger(r.logger),
		stream.WithReleaseFunc(func() {
			r.arena.Release(taskID)
		}),
	}
	if r.idle > 0 {
		opts = append(opts, stream.WithIdleTimeout(r.idle))
	}

	return stream.NewSession(log, bridge.ContextIDFor(taskID), opts...), nil
}

// Evict discards a task's log. A task that is sealed, drained, and no
// longer queried does not need to stay resident; evicting a live task
// closes its log anomalously, so use it on finished tasks.
func (r *Runtime) Evict(taskID string) {
	r.arena.Evict(taskID)
	r.mu.Lock()
	delete(r.tasks, taskID)
	r.mu.Unlock()
}

// Tasks returns the ids of the tasks the runtime still holds a log for.
func (r *Runtime) Tasks() []string {
	return r.arena.TaskIDs()
}

// Close cancels every running task and closes every log.
func (r *Runtime) Close() {
	r.mu.Lock()
	entries := make([]*taskEntry, 0, len(r.tasks))
	for _, entry := range r.tasks {
		entries = append(entries, entry)
	}
	r.mu.Unlock()

	for _, entry := range entries {
		entry.cancel()
		<-entry.done
	}
	r.arena.CloseAll()
}
