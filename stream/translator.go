// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream translates a task's progress log into the two wire
// event kinds push subscribers consume, and keeps the polling fallback on
// the same rules so both paths converge on one view of the task.
package stream

import (
	"reflect"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/progress"
)

// Translator maps progress events onto wire events. It carries the
// relay state the mapping depends on: the last emitted status, the
// exactly-once final latch, the set of artifacts already introduced, the
// set of artifacts already finalized, and the high-water progress.
//
// The same translator also absorbs already-translated wire events and
// diffs point-in-time snapshots, so a consumer that starts on the push
// path and degrades to polling keeps one continuous view.
//
// A Translator is not safe for concurrent use; every session or follower
// owns its own.
type Translator struct {
	taskID    string
	contextID string

	seenStatus bool
	lastState  bridge.TaskState
	finalSent  bool
	progress   float64
	lastSeen   string

	artifacts map[string]*bridge.Artifact
	finalized map[string]bool
}

// NewTranslator creates a translator for a task.
func NewTranslator(taskID, contextID string) *Translator {
	return &Translator{
		taskID:    taskID,
		contextID: contextID,
		artifacts: make(map[string]*bridge.Artifact),
		finalized: make(map[string]bool),
	}
}

// FinalSent reports whether the exactly-once final status update has
// been emitted or observed.
func (t *Translator) FinalSent() bool {
	return t.finalSent
}

// Progress returns the high-water progress seen so far.
func (t *Translator) Progress() float64 {
	return t.progress
}

// Translate maps one progress event onto zero or more wire events.
//
// A status differing from the last emitted one produces a status update
// whose final flag is set on terminal states; after the final, all
// status output is suppressed. Each artifact chunk produces one artifact
// update: the first chunk of an artifact id is forced to replacement
// semantics, later chunks follow the emitter's append flag, and the
// chunk that finalizes an artifact is the last one forwarded for that
// id. When an event carries both a status change and chunks, the status
// update comes first.
func (t *Translator) Translate(event progress.Event) []bridge.StreamEvent {
	var out []bridge.StreamEvent

	if event.Timestamp != "" {
		t.lastSeen = event.Timestamp
	}
	if event.Progress > t.progress {
		t.progress = event.Progress
	}

	if status := t.translateStatus(event.Status, event.Timestamp); status != nil {
		out = append(out, status)
	}

	for _, chunk := range event.Chunks() {
		if t.finalized[chunk.ArtifactID] {
			continue
		}

		prior, seen := t.artifacts[chunk.ArtifactID]
		appendParts := chunk.Append && seen
		lastChunk := chunk.Last || event.Status == bridge.TaskStateCompleted

		out = append(out, bridge.NewTaskArtifactUpdateEvent(
			t.taskID, t.contextID, chunk.Artifact(), appendParts, lastChunk))

		t.artifacts[chunk.ArtifactID] = chunk.Apply(prior)
		if lastChunk {
			t.finalized[chunk.ArtifactID] = true
		}
	}

	return out
}

// TranslateSnapshot diffs a polled snapshot against the translator state
// and emits the wire events a session reading the same log would have
// produced: one status update if the state moved, and one replacement
// artifact update per artifact whose folded content changed.
func (t *Translator) TranslateSnapshot(snapshot progress.Snapshot) []bridge.StreamEvent {
	var out []bridge.StreamEvent

	if snapshot.Status.Timestamp != "" {
		t.lastSeen = snapshot.Status.Timestamp
	}
	if snapshot.Progress > t.progress {
		t.progress = snapshot.Progress
	}

	if status := t.translateStatus(snapshot.Status.State, snapshot.Status.Timestamp); status != nil {
		out = append(out, status)
	}

	for _, artifact := range snapshot.Artifacts {
		if t.finalized[artifact.ArtifactID] {
			continue
		}
		prior, seen := t.artifacts[artifact.ArtifactID]
		if seen && reflect.DeepEqual(prior, artifact) {
			continue
		}

		// Snapshot deltas always carry the full folded content, so the
		// wire event uses replacement semantics.
		lastChunk := snapshot.Status.State == bridge.TaskStateCompleted
		out = append(out, bridge.NewTaskArtifactUpdateEvent(
			t.taskID, t.contextID, artifact.Clone(), false, lastChunk))

		t.artifacts[artifact.ArtifactID] = artifact.Clone()
		if lastChunk {
			t.finalized[artifact.ArtifactID] = true
		}
	}

	return out
}

// Observe absorbs a wire event delivered by another translator, keeping
// this one's state current so a later snapshot diff resumes where the
// push feed left off.
func (t *Translator) Observe(event bridge.StreamEvent) {
	switch e := event.(type) {
	case *bridge.TaskStatusUpdateEvent:
		if e.Status == nil {
			return
		}
		if e.Status.Timestamp != "" {
			t.lastSeen = e.Status.Timestamp
		}
		t.seenStatus = true
		t.lastState = e.Status.State
		if e.Final {
			t.finalSent = true
		}

	case *bridge.TaskArtifactUpdateEvent:
		if e.Artifact == nil || t.finalized[e.Artifact.ArtifactID] {
			return
		}
		id := e.Artifact.ArtifactID
		if prior, seen := t.artifacts[id]; seen && e.Append {
			prior.Parts = append(prior.Parts, e.Artifact.Parts...)
			if e.Artifact.Name != "" {
				prior.Name = e.Artifact.Name
			}
			if e.Artifact.Description != "" {
				prior.Description = e.Artifact.Description
			}
		} else {
			t.artifacts[id] = e.Artifact.Clone()
		}
		if e.LastChunk {
			t.finalized[id] = true
		}
	}
}

// Seal synthesizes the distinct terminal marker for a log that sealed
// without a terminal status: a final status update in the unknown state,
// stamped with the last event time the translator saw. It returns nothing
// when the final was already emitted.
func (t *Translator) Seal() []bridge.StreamEvent {
	if t.finalSent {
		return nil
	}

	t.seenStatus = true
	t.lastState = bridge.TaskStateUnknown
	t.finalSent = true

	return []bridge.StreamEvent{
		bridge.NewTaskStatusUpdateEvent(t.taskID, t.contextID, bridge.TaskStatus{
			State:     bridge.TaskStateUnknown,
			Timestamp: t.lastSeen,
		}, true),
	}
}

// translateStatus emits a status update when the claimed state differs
// from the last emitted one and the final latch is not set.
func (t *Translator) translateStatus(state bridge.TaskState, timestamp string) *bridge.TaskStatusUpdateEvent {
	if t.finalSent {
		return nil
	}
	if t.seenStatus && state == t.lastState {
		return nil
	}

	t.seenStatus = true
	t.lastState = state
	final := state.IsTerminal()
	if final {
		t.finalSent = true
	}

	return bridge.NewTaskStatusUpdateEvent(t.taskID, t.contextID, bridge.TaskStatus{
		State:     state,
		Timestamp: timestamp,
	}, final)
}
