// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"errors"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
)

// Activity pacing for the agent run.
const (
	agentRunTimeout   = 10 * time.Minute
	agentRunHeartbeat = time.Minute
)

// TaskWorkflow executes one task. The workflow owns the task's progress
// journal as plain workflow state: the journal takes no locks and reads
// no clocks, so replay reproduces it exactly.
//
// The workflow writes the submitted and working events itself, runs the
// agent handler as an activity, and drains the activity's relayed
// progress signals into the journal as they arrive. The activity return
// value is the primary completion path: the terminal event is built from
// it, so the task completes correctly even when every relayed signal was
// lost. A retried activity reuses its sequence base and re-sends
// identical sequence numbers, which the journal drops as duplicates.
func TaskWorkflow(ctx workflow.Context, input TaskInput) (TaskResult, error) {
	logger := workflow.GetLogger(ctx)
	taskID := workflow.GetInfo(ctx).WorkflowExecution.ID

	journal := progress.NewJournal(taskID)
	appendEvent := func(event progress.Event) {
		err := journal.Append(event)
		switch {
		case err == nil:
		case errors.Is(err, progress.ErrDuplicateEvent), errors.Is(err, progress.ErrLogSealed):
			logger.Warn("dropping progress event", "taskId", taskID, "seq", event.Seq, "error", err)
		default:
			logger.Error("progress event rejected", "taskId", taskID, "seq", event.Seq, "error", err)
		}
	}

	if err := workflow.SetQueryHandler(ctx, QueryProgressEvents, func(from int) ([]progress.Event, error) {
		return journal.EventsFrom(from), nil
	}); err != nil {
		return TaskResult{}, err
	}
	if err := workflow.SetQueryHandler(ctx, QueryProgressSnapshot, func() (progress.Snapshot, error) {
		return journal.Snapshot(), nil
	}); err != nil {
		return TaskResult{}, err
	}

	started := bridge.FormatTimestamp(workflow.Now(ctx))
	appendEvent(progress.Event{
		TaskID: taskID, Seq: 1, Status: bridge.TaskStateSubmitted, Timestamp: started,
	})
	appendEvent(progress.Event{
		TaskID: taskID, Seq: 2, Status: bridge.TaskStateWorking, Progress: 0.1, Timestamp: started,
	})

	// Relayed signals land in the journal as they arrive so queries see
	// the task mid-flight. The goroutine parks on Receive and is
	// abandoned when the workflow returns.
	signals := workflow.GetSignalChannel(ctx, SignalProgressReport)
	workflow.Go(ctx, func(gctx workflow.Context) {
		for {
			var event progress.Event
			if more := signals.Receive(gctx, &event); !more {
				return
			}
			appendEvent(event)
		}
	})

	request := agent.Request{
		TaskID:    taskID,
		ContextID: bridge.ContextIDFor(taskID),
		SeqBase:   journal.NextSeq() - 1,
		Message:   input.Message,
	}

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: agentRunTimeout,
		HeartbeatTimeout:    agentRunHeartbeat,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var out RunOutput
	runErr := workflow.ExecuteActivity(activityCtx, ActivityAgentRun, RunInput{
		Agent:   input.Agent,
		Request: request,
	}).Get(ctx, &out)

	// Buffered signals that raced the activity result still belong to
	// the log; late ones after the terminal hit the seal and drop.
	for {
		var event progress.Event
		if more := signals.ReceiveAsync(&event); !more {
			break
		}
		appendEvent(event)
	}

	finished := bridge.FormatTimestamp(workflow.Now(ctx))
	result := TaskResult{State: bridge.TaskStateCompleted}
	terminal := progress.Event{
		TaskID:    taskID,
		Seq:       journal.NextSeq(),
		Status:    bridge.TaskStateCompleted,
		Progress:  1,
		Timestamp: finished,
	}

	switch {
	case runErr == nil:
		if out.NextSeq > 0 {
			terminal.Seq = maxSeq(out.NextSeq, journal.NextSeq())
		}
		if len(out.Response.Artifacts) > 0 {
			chunks := make([]progress.Chunk, 0, len(out.Response.Artifacts))
			for _, artifact := range out.Response.Artifacts {
				chunks = append(chunks, progress.ArtifactChunk(artifact))
			}
			terminal.Result = &progress.Result{Artifacts: chunks}
			result.Artifacts = out.Response.Artifacts
		}

	case sdktemporal.IsCanceledError(runErr) || ctx.Err() != nil:
		terminal.Status = bridge.TaskStateCanceled
		terminal.Progress = journal.Snapshot().Progress
		result.State = bridge.TaskStateCanceled

	default:
		detail := failureDetail(runErr)
		terminal.Status = bridge.TaskStateFailed
		terminal.Progress = journal.Snapshot().Progress
		terminal.Error = detail
		result.State = bridge.TaskStateFailed
		result.Error = detail
	}

	appendEvent(terminal)
	logger.Info("task finished", "taskId", taskID, "state", result.State, "events", journal.Len())

	return result, nil
}

// failureDetail unwraps the human-readable message from an activity
// failure.
func failureDetail(err error) string {
	var appErr *sdktemporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}

func maxSeq(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
