// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/agent/echo"
	"github.com/go-a2a/bridge/client"
	"github.com/go-a2a/bridge/gateway"
	"github.com/go-a2a/bridge/local"
	"github.com/go-a2a/bridge/stream"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	runtime, err := local.NewRuntime([]agent.Agent{echo.New(), echo.NewStreaming()})
	require.NoError(t, err)
	t.Cleanup(runtime.Close)

	cfg := gateway.Config{
		Card: gateway.CardConfig{Name: "Test Gateway", Version: "0.0.1"},
		Stream: gateway.StreamConfig{
			PollIntervalMs:      50,
			WriteTimeoutSeconds: 5,
		},
	}
	server := httptest.NewServer(gateway.NewServer(runtime, cfg, zaptest.NewLogger(t)))
	t.Cleanup(server.Close)

	return client.New(server.URL, client.WithPollInterval(50*time.Millisecond))
}

func userMessage(text string) bridge.Message {
	return bridge.NewMessage(bridge.RoleUser, bridge.TextPart(text))
}

// waitTerminal polls tasks/get until the task reaches a terminal state.
func waitTerminal(t *testing.T, c *client.Client, taskID string) *bridge.Task {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		task, err := c.GetTask(t.Context(), taskID)
		require.NoError(t, err)
		if task.Status.State.IsTerminal() || time.Now().After(deadline) {
			return task
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// drain pulls every event from a stream until it ends.
func drain(t *testing.T, s stream.EventStream) []bridge.StreamEvent {
	t.Helper()
	defer s.Close()

	var out []bridge.StreamEvent
	for {
		event, err := s.Next(t.Context())
		if errors.Is(err, stream.ErrEndOfStream) {
			return out
		}
		require.NoError(t, err)
		out = append(out, event)
	}
}

func TestClient_SendMessageAndGetTask(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	task, err := c.SendMessage(t.Context(), userMessage("Hello world"), client.ToAgent("echo"))
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, bridge.TaskStateSubmitted, task.Status.State)

	got := waitTerminal(t, c, task.ID)
	require.Equal(t, bridge.TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)
	require.Equal(t, "Echo: Hello world", got.Artifacts[0].Text())

	snapshot, err := c.Snapshot(t.Context(), task.ID)
	require.NoError(t, err)
	require.Equal(t, bridge.TaskStateCompleted, snapshot.Status.State)
	require.True(t, snapshot.Sealed)
	require.InDelta(t, 1.0, snapshot.Progress, 1e-9)
}

func TestClient_SendMessageStream(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	s, err := c.SendMessageStream(t.Context(), userMessage("Hello world"), client.ToAgent("streaming-echo"))
	require.NoError(t, err)
	events := drain(t, s)
	require.NotEmpty(t, events)

	var finals int
	var lastText string
	for _, event := range events {
		switch e := event.(type) {
		case *bridge.TaskStatusUpdateEvent:
			if e.Final {
				finals++
				require.Equal(t, bridge.TaskStateCompleted, e.Status.State)
			}
		case *bridge.TaskArtifactUpdateEvent:
			lastText = e.Artifact.Text()
		}
	}
	require.Equal(t, 1, finals, "exactly one final status update")
	require.Equal(t, "Echo: Hello world", lastText)
}

func TestClient_Resubscribe(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	task, err := c.SendMessage(t.Context(), userMessage("one two three"), client.ToAgent("streaming-echo"))
	require.NoError(t, err)
	waitTerminal(t, c, task.ID)

	full, err := c.OpenStream(t.Context(), task.ID)
	require.NoError(t, err)
	all := drain(t, full)
	require.Greater(t, len(all), 2)

	// Resuming after the second event replays exactly the rest.
	resumedStream, err := c.Resubscribe(t.Context(), task.ID, "1")
	require.NoError(t, err)
	resumed := drain(t, resumedStream)
	require.Len(t, resumed, len(all)-2)
}

func TestClient_Follow(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	task, err := c.SendMessage(t.Context(), userMessage("Hello world"), client.ToAgent("streaming-echo"))
	require.NoError(t, err)

	var events []bridge.StreamEvent
	err = c.Follow(t.Context(), task.ID, func(event bridge.StreamEvent) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var finals int
	for _, event := range events {
		if bridge.IsFinalEvent(event) {
			finals++
		}
	}
	require.Equal(t, 1, finals, "exactly one final status update")
}

func TestClient_Subscribe(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	task, err := c.SendMessage(t.Context(), userMessage("Hello world"), client.ToAgent("streaming-echo"))
	require.NoError(t, err)

	var states []bridge.TaskState
	err = c.Subscribe(t.Context(), task.ID, "", func(event bridge.StreamEvent) error {
		if status, ok := event.(*bridge.TaskStatusUpdateEvent); ok {
			states = append(states, status.Status.State)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, states)
	require.Equal(t, bridge.TaskStateSubmitted, states[0])
	require.Equal(t, bridge.TaskStateCompleted, states[len(states)-1])
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	_, err := c.GetTask(t.Context(), "missing")
	require.ErrorIs(t, err, bridge.ErrTaskNotFound)

	task, err := c.SendMessage(t.Context(), userMessage("hi"), client.ToAgent("echo"))
	require.NoError(t, err)
	waitTerminal(t, c, task.ID)

	_, err = c.CancelTask(t.Context(), task.ID)
	require.ErrorIs(t, err, bridge.ErrTaskNotCancelable)
}

func TestClient_Card(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)

	card, err := c.Card(t.Context())
	require.NoError(t, err)
	require.Equal(t, "Test Gateway", card.Name)
	require.True(t, card.Capabilities.Streaming)
	require.Len(t, card.Skills, 2)
}
