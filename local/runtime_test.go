// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/agent/echo"
	"github.com/go-a2a/bridge/progress"
	"github.com/go-a2a/bridge/stream"
)

func newEchoRuntime(t *testing.T) *Runtime {
	t.Helper()

	runtime, err := NewRuntime([]agent.Agent{echo.New(), echo.NewStreaming()})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	t.Cleanup(runtime.Close)
	return runtime
}

func userMessage(text string) bridge.Message {
	return bridge.NewMessage(bridge.RoleUser, bridge.TextPart(text))
}

func TestRuntime_EchoTask(t *testing.T) {
	t.Parallel()

	runtime := newEchoRuntime(t)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "echo", userMessage("Hello world"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}
	if task.Status.State != bridge.TaskStateSubmitted {
		t.Errorf("initial state = %q, want %q", task.Status.State, bridge.TaskStateSubmitted)
	}
	if want := bridge.ContextIDFor(task.ID); task.ContextID != want {
		t.Errorf("context id = %q, want %q", task.ContextID, want)
	}

	session, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	events, err := drain(ctx, session)
	if err != nil {
		t.Fatalf("drain error = %v", err)
	}

	var finals int
	var lastStatus *bridge.TaskStatusUpdateEvent
	for _, event := range events {
		if status, ok := event.(*bridge.TaskStatusUpdateEvent); ok {
			lastStatus = status
			if status.Final {
				finals++
			}
		}
	}
	if finals != 1 {
		t.Fatalf("stream delivered %d final status updates, want exactly 1", finals)
	}
	if lastStatus.Status.State != bridge.TaskStateCompleted {
		t.Errorf("final state = %q, want %q", lastStatus.Status.State, bridge.TaskStateCompleted)
	}
	if !bridge.IsFinalEvent(events[len(events)-1]) {
		// The terminal event carries the final artifact, so the last
		// wire event is the artifact update with lastChunk set.
		last, ok := events[len(events)-1].(*bridge.TaskArtifactUpdateEvent)
		if !ok || !last.LastChunk {
			t.Errorf("stream did not end with the final status or last chunk, got %v", events[len(events)-1])
		}
	}
}

func TestRuntime_StreamAndSnapshotAgree(t *testing.T) {
	t.Parallel()

	runtime := newEchoRuntime(t)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "streaming-echo", userMessage("Hello world"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}

	session, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	events, err := drain(ctx, session)
	if err != nil {
		t.Fatalf("drain error = %v", err)
	}

	// Fold the drained wire events into a task view.
	streamed := bridge.NewTask(task.ID, task.ContextID)
	for _, event := range events {
		if err := bridge.ApplyEvent(ctx, streamed, event); err != nil {
			t.Fatalf("ApplyEvent() error = %v", err)
		}
	}

	snapshot, err := runtime.Snapshot(ctx, task.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if streamed.Status.State != snapshot.Status.State {
		t.Errorf("streamed state %q != snapshot state %q", streamed.Status.State, snapshot.Status.State)
	}
	if len(streamed.Artifacts) != len(snapshot.Artifacts) {
		t.Fatalf("streamed %d artifacts, snapshot %d", len(streamed.Artifacts), len(snapshot.Artifacts))
	}
	for i, artifact := range streamed.Artifacts {
		if diff := cmp.Diff(snapshot.Artifacts[i], artifact); diff != "" {
			t.Errorf("artifact %d mismatch (-snapshot +streamed):\n%s", i, diff)
		}
	}
	if got, want := streamed.Artifacts[0].Text(), "Echo: Hello world"; got != want {
		t.Errorf("final text = %q, want %q", got, want)
	}
}

func TestRuntime_SecondSubscriberSeesFullHistory(t *testing.T) {
	t.Parallel()

	runtime := newEchoRuntime(t)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "streaming-echo", userMessage("one two three four"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}

	// First subscriber reads one event and disconnects.
	first, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if _, err := first.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A later subscriber replays the complete history from the start.
	second, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() after disconnect error = %v", err)
	}
	events, err := drain(ctx, second)
	if err != nil {
		t.Fatalf("drain error = %v", err)
	}

	start := events[0].(*bridge.TaskStatusUpdateEvent)
	if start.Status.State != bridge.TaskStateSubmitted {
		t.Errorf("replay starts with %q, want %q", start.Status.State, bridge.TaskStateSubmitted)
	}
	var finals int
	for _, event := range events {
		if bridge.IsFinalEvent(event) {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("replay delivered %d final status updates, want exactly 1", finals)
	}
}

func TestRuntime_CancelTask(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	slow := agent.Agent{
		Name: "slow",
		Handler: func(ctx context.Context, req agent.Request, reporter *progress.Reporter) (agent.Response, error) {
			if err := reporter.Working(ctx, 0.3); err != nil {
				return agent.Response{}, err
			}
			close(blocked)
			<-ctx.Done()
			return agent.Response{}, ctx.Err()
		},
	}

	runtime, err := NewRuntime([]agent.Agent{slow})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	t.Cleanup(runtime.Close)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "slow", userMessage("work"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}
	<-blocked

	canceled, err := runtime.CancelTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CancelTask() error = %v", err)
	}
	if canceled.Status.State != bridge.TaskStateCanceled {
		t.Errorf("state after cancel = %q, want %q", canceled.Status.State, bridge.TaskStateCanceled)
	}

	if _, err := runtime.CancelTask(ctx, task.ID); !errors.Is(err, bridge.ErrTaskNotCancelable) {
		t.Errorf("second cancel error = %v, want ErrTaskNotCancelable", err)
	}
}

func TestRuntime_Errors(t *testing.T) {
	t.Parallel()

	runtime := newEchoRuntime(t)
	ctx := t.Context()

	tests := map[string]struct {
		run  func() error
		want error
	}{
		"error: unknown agent": {
			run: func() error {
				_, err := runtime.StartTask(ctx, "no-such-agent", userMessage("hi"))
				return err
			},
			want: bridge.ErrUnknownAgent,
		},
		"error: snapshot of unknown task": {
			run: func() error {
				_, err := runtime.Snapshot(ctx, "missing")
				return err
			},
			want: bridge.ErrTaskNotFound,
		},
		"error: stream of unknown task": {
			run: func() error {
				_, err := runtime.OpenStream(ctx, "missing")
				return err
			},
			want: bridge.ErrTaskNotFound,
		},
		"error: cancel of unknown task": {
			run: func() error {
				_, err := runtime.CancelTask(ctx, "missing")
				return err
			},
			want: bridge.ErrTaskNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRuntime_FailedTaskCarriesError(t *testing.T) {
	t.Parallel()

	failing := agent.Agent{
		Name: "failing",
		Handler: func(ctx context.Context, req agent.Request, reporter *progress.Reporter) (agent.Response, error) {
			_ = reporter.Working(ctx, 0.4)
			return agent.Response{}, errors.New("backend exploded")
		},
	}
	runtime, err := NewRuntime([]agent.Agent{failing})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	t.Cleanup(runtime.Close)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "failing", userMessage("boom"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}

	session, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if _, err := drain(ctx, session); err != nil {
		t.Fatalf("drain error = %v", err)
	}

	snapshot, err := runtime.Snapshot(ctx, task.ID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.Status.State != bridge.TaskStateFailed {
		t.Errorf("state = %q, want %q", snapshot.Status.State, bridge.TaskStateFailed)
	}
	if snapshot.Error != "backend exploded" {
		t.Errorf("error detail = %q, want %q", snapshot.Error, "backend exploded")
	}
}

func TestRuntime_EvictDropsFinishedTask(t *testing.T) {
	t.Parallel()

	runtime := newEchoRuntime(t)
	ctx := t.Context()

	task, err := runtime.StartTask(ctx, "echo", userMessage("hi"))
	if err != nil {
		t.Fatalf("StartTask() error = %v", err)
	}
	session, err := runtime.OpenStream(ctx, task.ID)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if _, err := drain(ctx, session); err != nil {
		t.Fatalf("drain error = %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	runtime.Evict(task.ID)
	if _, err := runtime.Snapshot(ctx, task.ID); !errors.Is(err, bridge.ErrTaskNotFound) {
		t.Errorf("Snapshot() after evict error = %v, want ErrTaskNotFound", err)
	}
}

// drain pulls every wire event until the stream ends. It leaves the
// session open so tests can still snapshot the task afterwards.
func drain(ctx context.Context, s stream.EventStream) ([]bridge.StreamEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out []bridge.StreamEvent
	for {
		event, err := s.Next(ctx)
		if errors.Is(err, stream.ErrEndOfStream) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, event)
	}
}
