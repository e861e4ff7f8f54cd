// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/mocks"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
)

// encodedValue round-trips a value through the default data converter,
// matching what a real query result decodes like.
type encodedValue struct {
	value any
}

func (v encodedValue) HasValue() bool {
	return v.value != nil
}

func (v encodedValue) Get(ptr any) error {
	payload, err := converter.GetDefaultDataConverter().ToPayload(v.value)
	if err != nil {
		return err
	}
	return converter.GetDefaultDataConverter().FromPayload(payload, ptr)
}

var _ converter.EncodedValue = encodedValue{}

func echoAgents() []agent.Agent {
	return []agent.Agent{{
		Name: "echo",
		Handler: func(ctx context.Context, req agent.Request, r *progress.Reporter) (agent.Response, error) {
			return agent.Response{}, nil
		},
	}}
}

func TestService_StartTask(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, WorkflowTypeTask, mock.Anything).Return(run, nil).Once()

	service := NewService(c, echoAgents())
	t.Cleanup(service.Close)

	task, err := service.StartTask(t.Context(), "echo", bridge.NewMessage(bridge.RoleUser, bridge.TextPart("hi")))
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, bridge.ContextIDFor(task.ID), task.ContextID)
	require.Equal(t, bridge.TaskStateSubmitted, task.Status.State)
	c.AssertExpectations(t)
}

func TestService_StartTaskUnknownAgent(t *testing.T) {
	t.Parallel()

	service := NewService(&mocks.Client{}, echoAgents())
	t.Cleanup(service.Close)

	_, err := service.StartTask(t.Context(), "no-such-agent", bridge.NewMessage(bridge.RoleUser, bridge.TextPart("hi")))
	require.ErrorIs(t, err, bridge.ErrUnknownAgent)
}

func TestService_SnapshotMapsNotFound(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "missing", "", QueryProgressSnapshot).
		Return(nil, serviceerror.NewNotFound("no such workflow")).Once()

	service := NewService(c, echoAgents())
	t.Cleanup(service.Close)

	_, err := service.Snapshot(t.Context(), "missing")
	require.ErrorIs(t, err, bridge.ErrTaskNotFound)
	c.AssertExpectations(t)
}

func TestService_GetTaskRendersSnapshot(t *testing.T) {
	t.Parallel()

	snapshot := progress.Snapshot{
		TaskID: "t1",
		Status: bridge.TaskStatus{State: bridge.TaskStateWorking, Timestamp: "2025-07-03T17:46:00.000Z"},
		Progress: 0.5,
		Artifacts: []*bridge.Artifact{
			bridge.NewTextArtifact("artifact-t1", "Progressive Response", "Echo: Hello"),
		},
	}
	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "t1", "", QueryProgressSnapshot).
		Return(encodedValue{snapshot}, nil).Once()

	service := NewService(c, echoAgents())
	t.Cleanup(service.Close)

	task, err := service.GetTask(t.Context(), "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", task.ID)
	require.Equal(t, bridge.TaskStateWorking, task.Status.State)
	require.InDelta(t, 0.5, task.Metadata[bridge.MetadataProgress], 1e-9)
	require.Len(t, task.Artifacts, 1)
	require.Equal(t, "Echo: Hello", task.Artifacts[0].Text())
	c.AssertExpectations(t)
}

func TestService_CancelTerminalTask(t *testing.T) {
	t.Parallel()

	snapshot := progress.Snapshot{
		TaskID: "t2",
		Status: bridge.TaskStatus{State: bridge.TaskStateCompleted, Timestamp: "2025-07-03T17:46:00.000Z"},
		Progress: 1,
		Sealed:   true,
	}
	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "t2", "", QueryProgressSnapshot).
		Return(encodedValue{snapshot}, nil).Once()

	service := NewService(c, echoAgents())
	t.Cleanup(service.Close)

	_, err := service.CancelTask(t.Context(), "t2")
	require.ErrorIs(t, err, bridge.ErrTaskNotCancelable)
	c.AssertExpectations(t)
}

func TestService_CancelRunningTask(t *testing.T) {
	t.Parallel()

	snapshot := progress.Snapshot{
		TaskID: "t3",
		Status: bridge.TaskStatus{State: bridge.TaskStateWorking, Timestamp: "2025-07-03T17:46:00.000Z"},
	}
	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "t3", "", QueryProgressSnapshot).
		Return(encodedValue{snapshot}, nil).Once()
	c.On("CancelWorkflow", mock.Anything, "t3", "").Return(nil).Once()

	service := NewService(c, echoAgents())
	t.Cleanup(service.Close)

	task, err := service.CancelTask(t.Context(), "t3")
	require.NoError(t, err)
	require.Equal(t, "t3", task.ID)
	c.AssertExpectations(t)
}
