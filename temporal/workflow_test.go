// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
)

type TaskWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
}

func TestTaskWorkflow(t *testing.T) {
	suite.Run(t, new(TaskWorkflowTestSuite))
}

func (s *TaskWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflowWithOptions(TaskWorkflow, workflow.RegisterOptions{Name: WorkflowTypeTask})
}

func (s *TaskWorkflowTestSuite) registerActivity(run func(ctx context.Context, input RunInput) (RunOutput, error)) {
	s.env.RegisterActivityWithOptions(run, activity.RegisterOptions{Name: ActivityAgentRun})
}

func (s *TaskWorkflowTestSuite) startInput() TaskInput {
	return TaskInput{
		Agent:   "echo",
		Message: bridge.NewMessage(bridge.RoleUser, bridge.TextPart("Hello world")),
	}
}

// chunkEvent builds a relayed progress event the way a reporter would.
func chunkEvent(taskID string, seq uint64, progressValue float64, text string) progress.Event {
	return progress.Event{
		TaskID:   taskID,
		Seq:      seq,
		Status:   bridge.TaskStateWorking,
		Progress: progressValue,
		Result: &progress.Result{Artifacts: []progress.Chunk{
			progress.TextChunk(bridge.ArtifactIDFor(taskID), "Progressive Response", text),
		}},
		Timestamp: "2025-07-03T17:46:00.000Z",
	}
}

func (s *TaskWorkflowTestSuite) TestCompletesWithArtifacts() {
	taskID := "default-test-workflow-id"
	release := make(chan struct{})

	s.registerActivity(func(ctx context.Context, input RunInput) (RunOutput, error) {
		s.Equal("echo", input.Agent)
		s.Equal(uint64(2), input.Request.SeqBase)
		<-release
		artifact := bridge.NewTextArtifact(bridge.ArtifactIDFor(taskID), "Complete Response", "Echo: Hello world")
		return RunOutput{
			Response: agent.Response{Artifacts: []bridge.Artifact{*artifact}},
			NextSeq:  5,
		}, nil
	})

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalProgressReport, chunkEvent(taskID, 3, 0.5, "Echo:"))
		s.env.SignalWorkflow(SignalProgressReport, chunkEvent(taskID, 4, 0.8, "Echo: Hello"))
		close(release)
	}, time.Millisecond)

	s.env.ExecuteWorkflow(WorkflowTypeTask, s.startInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result TaskResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(bridge.TaskStateCompleted, result.State)
	s.Require().Len(result.Artifacts, 1)
	s.Equal("Echo: Hello world", result.Artifacts[0].Text())

	value, err := s.env.QueryWorkflow(QueryProgressSnapshot)
	s.Require().NoError(err)
	var snapshot progress.Snapshot
	s.Require().NoError(value.Get(&snapshot))
	s.Equal(bridge.TaskStateCompleted, snapshot.Status.State)
	s.True(snapshot.Sealed)
	s.Require().Len(snapshot.Artifacts, 1)
	s.Equal("Echo: Hello world", snapshot.Artifacts[0].Text())
	s.InDelta(1.0, snapshot.Progress, 1e-9)
}

func (s *TaskWorkflowTestSuite) TestDuplicateSignalsAreDropped() {
	taskID := "default-test-workflow-id"
	release := make(chan struct{})

	s.registerActivity(func(ctx context.Context, input RunInput) (RunOutput, error) {
		<-release
		return RunOutput{NextSeq: 4}, nil
	})

	s.env.RegisterDelayedCallback(func() {
		event := chunkEvent(taskID, 3, 0.5, "Echo:")
		s.env.SignalWorkflow(SignalProgressReport, event)
		// At-least-once relays re-deliver; the journal must not grow.
		s.env.SignalWorkflow(SignalProgressReport, event)
		s.env.SignalWorkflow(SignalProgressReport, event)
		close(release)
	}, time.Millisecond)

	s.env.ExecuteWorkflow(WorkflowTypeTask, s.startInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	value, err := s.env.QueryWorkflow(QueryProgressEvents, 0)
	s.Require().NoError(err)
	var events []progress.Event
	s.Require().NoError(value.Get(&events))

	// submitted, working, one chunk, terminal.
	s.Require().Len(events, 4)
	s.Equal(uint64(3), events[2].Seq)
	s.Equal(bridge.TaskStateCompleted, events[3].Status)
}

func (s *TaskWorkflowTestSuite) TestActivityFailureReportsFailed() {
	s.registerActivity(func(ctx context.Context, input RunInput) (RunOutput, error) {
		return RunOutput{}, sdktemporal.NewNonRetryableApplicationError("backend exploded", "EchoError", nil)
	})

	s.env.ExecuteWorkflow(WorkflowTypeTask, s.startInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result TaskResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(bridge.TaskStateFailed, result.State)
	s.Equal("backend exploded", result.Error)

	value, err := s.env.QueryWorkflow(QueryProgressSnapshot)
	s.Require().NoError(err)
	var snapshot progress.Snapshot
	s.Require().NoError(value.Get(&snapshot))
	s.Equal(bridge.TaskStateFailed, snapshot.Status.State)
	s.Equal("backend exploded", snapshot.Error)
}

func (s *TaskWorkflowTestSuite) TestRelayLossStillCompletes() {
	// No signals arrive at all: the journal only ever sees the events
	// the workflow writes itself, and the activity result still drives
	// the terminal state.
	s.registerActivity(func(ctx context.Context, input RunInput) (RunOutput, error) {
		artifact := bridge.NewTextArtifact(bridge.ArtifactIDFor(input.Request.TaskID), "Echo Response", "Echo: Hello world")
		return RunOutput{
			Response: agent.Response{Artifacts: []bridge.Artifact{*artifact}},
			NextSeq:  7,
		}, nil
	})

	s.env.ExecuteWorkflow(WorkflowTypeTask, s.startInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	value, err := s.env.QueryWorkflow(QueryProgressSnapshot)
	s.Require().NoError(err)
	var snapshot progress.Snapshot
	s.Require().NoError(value.Get(&snapshot))
	s.Equal(bridge.TaskStateCompleted, snapshot.Status.State)
	s.Require().Len(snapshot.Artifacts, 1)
	s.Equal("Echo: Hello world", snapshot.Artifacts[0].Text())

	value, err = s.env.QueryWorkflow(QueryProgressEvents, 0)
	s.Require().NoError(err)
	var events []progress.Event
	s.Require().NoError(value.Get(&events))
	s.Require().Len(events, 3)
	// The terminal sequence number honors the activity's reported
	// high-water mark, so a late re-delivery can never collide with it.
	s.Equal(uint64(7), events[2].Seq)
}

func (s *TaskWorkflowTestSuite) TestCancellationReportsCanceled() {
	s.registerActivity(func(ctx context.Context, input RunInput) (RunOutput, error) {
		<-ctx.Done()
		return RunOutput{}, ctx.Err()
	})

	s.env.RegisterDelayedCallback(func() {
		s.env.CancelWorkflow()
	}, time.Millisecond)

	s.env.ExecuteWorkflow(WorkflowTypeTask, s.startInput())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result TaskResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(bridge.TaskStateCanceled, result.State)

	value, err := s.env.QueryWorkflow(QueryProgressSnapshot)
	s.Require().NoError(err)
	var snapshot progress.Snapshot
	s.Require().NoError(value.Get(&snapshot))
	s.Equal(bridge.TaskStateCanceled, snapshot.Status.State)
}
