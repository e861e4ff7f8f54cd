// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"github.com/go-a2a/bridge"
)

// Snapshot is the point-in-time view of a task folded from its progress
// log. Folding the whole log yields the same view a subscriber obtains
// by draining a stream session and applying every wire event, which is
// what keeps the polling fallback consistent with the push path.
type Snapshot struct {
	// TaskID identifies the task.
	TaskID string `json:"taskId"`

	// Status is the last claimed state, carrying the timestamp of the
	// event that set it. A log sealed without a terminal event reads as
	// the unknown terminal marker.
	Status bridge.TaskStatus `json:"status"`

	// Progress is the high-water completion fraction.
	Progress float64 `json:"progress"`

	// Artifacts holds the folded artifacts in first-seen order.
	Artifacts []*bridge.Artifact `json:"artifacts,omitzero"`

	// Error is the failure detail, set only when the task failed.
	Error string `json:"error,omitzero"`

	// Sealed reports whether the log accepts no further appends.
	Sealed bool `json:"sealed"`

	// Events is the number of log events the snapshot folds.
	Events int `json:"events"`
}

// Fold reduces a progress event sequence into a Snapshot.
//
// Status is the last claimed state with a terminal latch. Progress is
// the maximum seen, so reordered deliveries never regress it. Artifacts
// fold per artifact id in first-seen order: replacement chunks overwrite
// the artifact, append chunks extend its parts, and chunks past an
// artifact's final chunk are dropped. A sealed sequence without a
// terminal event folds to the unknown marker stamped with the last
// event's timestamp.
func Fold(taskID string, events []Event, sealed bool) Snapshot {
	snapshot := Snapshot{
		TaskID: taskID,
		Status: bridge.TaskStatus{State: bridge.TaskStateSubmitted},
		Events: len(events),
		Sealed: sealed,
	}

	var (
		artifacts []*bridge.Artifact
		index     = make(map[string]int)
		finalized = make(map[string]bool)
		lastSeen  string
	)

	for _, event := range events {
		if event.Progress > snapshot.Progress {
			snapshot.Progress = event.Progress
		}
		lastSeen = event.Timestamp

		if !snapshot.Status.State.IsTerminal() {
			snapshot.Status.State = event.Status
			snapshot.Status.Timestamp = event.Timestamp
			if event.Status == bridge.TaskStateFailed {
				snapshot.Error = event.Error
			}
		}

		for _, chunk := range event.Chunks() {
			if finalized[chunk.ArtifactID] {
				continue
			}
			foldChunk(&artifacts, index, chunk)
			if chunk.Last || event.Status == bridge.TaskStateCompleted {
				finalized[chunk.ArtifactID] = true
			}
		}
	}

	if sealed && !snapshot.Status.State.IsTerminal() {
		snapshot.Status.State = bridge.TaskStateUnknown
		snapshot.Status.Timestamp = lastSeen
	}

	snapshot.Artifacts = artifacts
	return snapshot
}

// foldChunk applies one artifact chunk to the folded artifact list.
func foldChunk(artifacts *[]*bridge.Artifact, index map[string]int, chunk Chunk) {
	if i, seen := index[chunk.ArtifactID]; seen {
		(*artifacts)[i] = chunk.Apply((*artifacts)[i])
		return
	}

	index[chunk.ArtifactID] = len(*artifacts)
	*artifacts = append(*artifacts, chunk.Apply(nil))
}

// SnapshotFromTask reconstructs a Snapshot from a protocol Task. It is
// the inverse of [Snapshot.Task], used by consumers whose only view of a
// remote task is the polling surface.
func SnapshotFromTask(task *bridge.Task) Snapshot {
	snapshot := Snapshot{
		TaskID: task.ID,
		Status: task.Status,
		Sealed: task.Status.State.IsTerminal(),
	}
	if p, ok := task.Metadata[bridge.MetadataProgress].(float64); ok {
		snapshot.Progress = p
	}
	if detail, ok := task.Metadata[bridge.MetadataError].(string); ok {
		snapshot.Error = detail
	}
	for _, artifact := range task.Artifacts {
		snapshot.Artifacts = append(snapshot.Artifacts, artifact.Clone())
	}

	return snapshot
}

// Task renders the snapshot as a protocol Task. Progress rides in the
// task metadata, and the failure detail joins it when the task failed.
func (s Snapshot) Task() *bridge.Task {
	task := bridge.NewTask(s.TaskID, bridge.ContextIDFor(s.TaskID))
	task.Status = s.Status
	task.Metadata = map[string]any{
		bridge.MetadataProgress: s.Progress,
	}
	if s.Error != "" {
		task.Metadata[bridge.MetadataError] = s.Error
	}
	for _, artifact := range s.Artifacts {
		task.Artifacts = append(task.Artifacts, artifact.Clone())
	}

	return task
}
