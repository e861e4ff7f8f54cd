// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
)

// ContextIDFor derives the context id paired with a task id.
func ContextIDFor(taskID string) string {
	return "ctx-" + shortID(taskID)
}

// ArtifactIDFor derives the stable artifact id for a task's primary
// streaming artifact. Every chunk of that artifact reuses it.
func ArtifactIDFor(taskID string) string {
	return "artifact-" + shortID(taskID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ApplyEvent folds one wire event into a Task view.
//
// A status update replaces the task status. An artifact update merges into
// the artifact list by artifact id: replace semantics when Append is false,
// part-append semantics when Append is true. An append to an artifact id
// the task has never seen is ignored, since there is nothing to extend.
func ApplyEvent(ctx context.Context, task *Task, event StreamEvent) error {
	logger := slog.Default()

	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	switch e := event.(type) {
	case *TaskStatusUpdateEvent:
		task.Status = *e.Status

	case *TaskArtifactUpdateEvent:
		applyArtifact(ctx, logger, task, e)

	default:
		return fmt.Errorf("unknown event type: %T", event)
	}

	return nil
}

func applyArtifact(ctx context.Context, logger *slog.Logger, task *Task, event *TaskArtifactUpdateEvent) {
	incoming := event.Artifact
	artifactID := incoming.ArtifactID

	existingIndex := -1
	for i, artifact := range task.Artifacts {
		if artifact.ArtifactID == artifactID {
			existingIndex = i
			break
		}
	}

	switch {
	case !event.Append:
		if existingIndex == -1 {
			logger.InfoContext(ctx, "adding new artifact for task",
				slog.String("artifact_id", artifactID), slog.String("task_id", task.ID))
			task.Artifacts = append(task.Artifacts, incoming.Clone())
			return
		}
		logger.InfoContext(ctx, "replacing artifact for task",
			slog.String("artifact_id", artifactID), slog.String("task_id", task.ID))
		task.Artifacts[existingIndex] = incoming.Clone()

	case existingIndex != -1:
		existing := task.Artifacts[existingIndex]
		existing.Parts = append(existing.Parts, incoming.Parts...)
		if incoming.Name != "" {
			existing.Name = incoming.Name
		}
		if incoming.Description != "" {
			existing.Description = incoming.Description
		}

	default:
		// An append chunk for an artifact we never saw. Ignore it.
		logger.InfoContext(ctx, "received append for nonexistent artifact, ignoring chunk",
			slog.String("artifact_id", artifactID), slog.String("task_id", task.ID))
	}
}
