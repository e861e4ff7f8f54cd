// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
	"github.com/go-a2a/bridge/stream"
)

// DefaultTailInterval paces the journal tailers. It mirrors the cadence
// the workflow queries tolerate comfortably.
const DefaultTailInterval = 100 * time.Millisecond

// Service is the host-side consumer surface over Temporal-run tasks. It
// starts workflows, reads their journals through queries, and serves
// push sessions from per-task replica logs that a tailer goroutine keeps
// current. The replica inherits the journal's idempotent append, so
// overlapping tail reads are harmless.
type Service struct {
	client    client.Client
	taskQueue string
	agents    []agent.Agent
	arena     *progress.Arena
	logger    *slog.Logger
	interval  time.Duration
	idle      time.Duration

	mu      sync.Mutex
	tailers map[string]context.CancelFunc
	closed  bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTaskQueue sets the task queue workflows start on.
func WithTaskQueue(queue string) ServiceOption {
	return func(s *Service) {
		if queue != "" {
			s.taskQueue = queue
		}
	}
}

// WithTailInterval sets the pause between journal tail queries.
func WithTailInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStreamIdleTimeout sets the idle timeout applied to sessions the
// service opens. Zero disables it.
func WithStreamIdleTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.idle = d
	}
}

// NewService creates a service over a Temporal client. The agents are
// the declarations served on the agent card; the workers hosting them
// run separately.
func NewService(c client.Client, agents []agent.Agent, opts ...ServiceOption) *Service {
	s := &Service{
		client:    c,
		taskQueue: DefaultTaskQueue,
		agents:    agents,
		arena:     progress.NewArena(),
		logger:    slog.Default(),
		interval:  DefaultTailInterval,
		tailers:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Agents returns the declarations of the agents the service fronts.
func (s *Service) Agents() []agent.Agent {
	return s.agents
}

// StartTask starts one task workflow on the named agent. The workflow
// id is the task id, which is what lets the relay address the journal
// with nothing but the task id.
func (s *Service) StartTask(ctx context.Context, agentName string, message bridge.Message) (*bridge.Task, error) {
	if !s.knownAgent(agentName) {
		return nil, fmt.Errorf("starting task on agent %q: %w", agentName, bridge.ErrUnknownAgent)
	}
	if err := message.Validate(); err != nil {
		return nil, fmt.Errorf("starting task on agent %q: %w", agentName, err)
	}

	taskID := uuid.NewString()
	_, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        taskID,
		TaskQueue: s.taskQueue,
	}, WorkflowTypeTask, TaskInput{Agent: agentName, Message: message})
	if err != nil {
		return nil, fmt.Errorf("starting task %s: %w", taskID, err)
	}

	s.logger.InfoContext(ctx, "task started",
		slog.String("task_id", taskID),
		slog.String("agent", agentName),
		slog.String("task_queue", s.taskQueue))

	task := bridge.NewTask(taskID, bridge.ContextIDFor(taskID))
	task.History = []bridge.Message{message}
	return task, nil
}

func (s *Service) knownAgent(name string) bool {
	for _, a := range s.agents {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Snapshot queries the task workflow for its folded journal view.
func (s *Service) Snapshot(ctx context.Context, taskID string) (progress.Snapshot, error) {
	value, err := s.client.QueryWorkflow(ctx, taskID, "", QueryProgressSnapshot)
	if err != nil {
		return progress.Snapshot{}, mapQueryError(taskID, err)
	}

	var snapshot progress.Snapshot
	if err := value.Get(&snapshot); err != nil {
		return progress.Snapshot{}, fmt.Errorf("decoding snapshot of task %s: %w", taskID, err)
	}
	return snapshot, nil
}

// GetTask returns the point-in-time view of a task.
func (s *Service) GetTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	snapshot, err := s.Snapshot(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return snapshot.Task(), nil
}

// CancelTask requests cancellation of a running task. A task already in
// a terminal state returns [bridge.ErrTaskNotCancelable].
func (s *Service) CancelTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	snapshot, err := s.Snapshot(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status.State.IsTerminal() {
		return nil, fmt.Errorf("canceling task %s: %w", taskID, bridge.ErrTaskNotCancelable)
	}

	if err := s.client.CancelWorkflow(ctx, taskID, ""); err != nil {
		return nil, fmt.Errorf("canceling task %s: %w", taskID, mapQueryError(taskID, err))
	}

	return snapshot.Task(), nil
}

// OpenStream opens a push session over a local replica of the task's
// journal. The first session for a task starts the tailer that keeps
// the replica current; the replica is evicted once a drained session
// releases the last pin.
func (s *Service) OpenStream(ctx context.Context, taskID string) (stream.EventStream, error) {
	// Surface unknown tasks now rather than from the tailer.
	if _, err := s.Snapshot(ctx, taskID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("opening stream for task %s: service closed", taskID)
	}
	replica, created := s.arena.GetOrCreate(taskID)
	if created {
		tailCtx, cancel := context.WithCancel(context.Background())
		s.tailers[taskID] = cancel
		go s.tail(tailCtx, taskID, replica)
	}
	if _, err := s.arena.Acquire(taskID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	var session *stream.Session
	opts := []stream.SessionOption{
		stream.WithSessionLogger(s.logger),
		stream.WithReleaseFunc(func() {
			if s.arena.Release(taskID) == 0 && replica.Sealed() && session.Ended() {
				s.evict(taskID)
			}
		}),
	}
	if s.idle > 0 {
		opts = append(opts, stream.WithIdleTimeout(s.idle))
	}

	session = stream.NewSession(replica, bridge.ContextIDFor(taskID), opts...)
	return session, nil
}

// tail keeps one replica log current by querying the workflow journal
// from the replica's length onward. The replica seals itself when the
// terminal event lands; a vanished workflow seals it anomalously so
// subscribers get the unknown terminal marker instead of hanging.
func (s *Service) tail(ctx context.Context, taskID string, replica *progress.Log) {
	for !replica.Sealed() {
		value, err := s.client.QueryWorkflow(ctx, taskID, "", QueryProgressEvents, replica.Len())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				s.logger.Warn("task workflow vanished mid-stream, sealing replica",
					slog.String("task_id", taskID))
				replica.Close()
				return
			}
			s.logger.Warn("journal tail query failed",
				slog.String("task_id", taskID),
				slog.Any("error", err))
		} else {
			var events []progress.Event
			if err := value.Get(&events); err != nil {
				s.logger.Warn("decoding journal tail failed",
					slog.String("task_id", taskID),
					slog.Any("error", err))
			}
			for _, event := range events {
				err := replica.Append(event)
				if err != nil && !errors.Is(err, progress.ErrDuplicateEvent) && !errors.Is(err, progress.ErrLogSealed) {
					s.logger.Warn("replica rejected journal event",
						slog.String("task_id", taskID),
						slog.Uint64("seq", event.Seq),
						slog.Any("error", err))
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// evict drops a task's replica and stops its tailer.
func (s *Service) evict(taskID string) {
	s.mu.Lock()
	cancel, ok := s.tailers[taskID]
	delete(s.tailers, taskID)
	s.mu.Unlock()

	if ok {
		cancel()
	}
	s.arena.Evict(taskID)
}

// Close stops every tailer and closes every replica.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	cancels := make([]context.CancelFunc, 0, len(s.tailers))
	for id, cancel := range s.tailers {
		cancels = append(cancels, cancel)
		delete(s.tailers, id)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.arena.CloseAll()
}

// mapQueryError converts Temporal service errors into domain errors.
func mapQueryError(taskID string, err error) error {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("task %s: %w", taskID, bridge.ErrTaskNotFound)
	}
	return err
}
