// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress implements the per-task append-only progress log and
// the machinery that feeds it: the event model executors emit, the relay
// that carries events addressed only by task id, and the fold that turns
// a log into a point-in-time snapshot.
package progress

import (
	"fmt"

	"github.com/go-a2a/bridge"
)

// Event is the atomic unit appended to a task's progress log. Executors
// emit events through a Reporter; a Relay delivers them to the log that
// owns the task id.
type Event struct {
	// TaskID identifies the task the event belongs to.
	TaskID string `json:"taskId"`

	// Seq is the executor-assigned per-task sequence number, starting at
	// 1 and increasing by one per emitted event. Logs use it to drop
	// re-deliveries, never to reorder.
	Seq uint64 `json:"seq"`

	// Status is the task state claimed by this event.
	Status bridge.TaskState `json:"status"`

	// Progress is the completion fraction in [0, 1]. Consumers observe
	// the high-water maximum, so a late event carrying a lower value
	// never regresses reported progress.
	Progress float64 `json:"progress"`

	// Result carries partial or final artifact chunks, if any.
	Result *Result `json:"result,omitzero"`

	// Error is a human-readable failure detail, meaningful when Status
	// is failed.
	Error string `json:"error,omitzero"`

	// Timestamp is the event time, assigned once by the executor and
	// never recomputed downstream.
	Timestamp string `json:"timestamp"`
}

// Result is the payload of an Event: one chunk per artifact the event
// contributes to.
type Result struct {
	// Artifacts holds the artifact chunks.
	Artifacts []Chunk `json:"artifacts"`
}

// Chunk is one increment of an artifact. The artifact id is assigned on
// the first chunk of a logical response and reused by every later chunk.
type Chunk struct {
	// ArtifactID is the stable identity of the artifact.
	ArtifactID string `json:"artifactId"`

	// Name of the artifact. It may vary between chunks.
	Name string `json:"name,omitzero"`

	// Description of the artifact.
	Description string `json:"description,omitzero"`

	// Parts holds the chunk content.
	Parts []bridge.Part `json:"parts"`

	// Append marks the chunk as extending the artifact's previous parts.
	// When false the chunk carries full replacement content. The emitter
	// decides; translators force the first chunk of an artifact to
	// replacement semantics regardless.
	Append bool `json:"append,omitzero"`

	// Last finalizes the artifact. No later chunk for the same artifact
	// id reaches subscribers.
	Last bool `json:"lastChunk,omitzero"`
}

// TextChunk builds a single-part text Chunk with replacement semantics.
func TextChunk(artifactID, name, text string) Chunk {
	return Chunk{
		ArtifactID: artifactID,
		Name:       name,
		Parts:      []bridge.Part{bridge.TextPart(text)},
	}
}

// ArtifactChunk renders a complete artifact as a replacement Chunk,
// copying the parts so the chunk and the artifact stay independent.
func ArtifactChunk(artifact bridge.Artifact) Chunk {
	chunk := Chunk{
		ArtifactID:  artifact.ArtifactID,
		Name:        artifact.Name,
		Description: artifact.Description,
	}
	if len(artifact.Parts) > 0 {
		chunk.Parts = make([]bridge.Part, len(artifact.Parts))
		copy(chunk.Parts, artifact.Parts)
	}
	return chunk
}

// Artifact renders the chunk's own content as a fresh artifact.
func (c Chunk) Artifact() *bridge.Artifact {
	artifact := &bridge.Artifact{
		ArtifactID:  c.ArtifactID,
		Name:        c.Name,
		Description: c.Description,
	}
	if len(c.Parts) > 0 {
		artifact.Parts = make([]bridge.Part, len(c.Parts))
		copy(artifact.Parts, c.Parts)
	}
	return artifact
}

// Apply folds the chunk into the artifact's prior state and returns the
// new state. A replacement chunk, or any chunk applied to a nil prior,
// yields the chunk's full content; an append chunk extends the prior
// parts and refreshes name and description when the chunk carries them.
func (c Chunk) Apply(prior *bridge.Artifact) *bridge.Artifact {
	if prior == nil || !c.Append {
		return c.Artifact()
	}

	prior.Parts = append(prior.Parts, c.Parts...)
	if c.Name != "" {
		prior.Name = c.Name
	}
	if c.Description != "" {
		prior.Description = c.Description
	}
	return prior
}

// Terminal reports whether the event claims an absorbing task state.
func (e Event) Terminal() bool {
	return e.Status.IsTerminal()
}

// Chunks returns the artifact chunks carried by the event, if any.
func (e Event) Chunks() []Chunk {
	if e.Result == nil {
		return nil
	}
	return e.Result.Artifacts
}

// Validate ensures the Event is in a valid state.
func (e Event) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("progress event task id cannot be empty")
	}
	if e.Seq == 0 {
		return fmt.Errorf("progress event sequence number must be positive")
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("unknown task state: %q", e.Status)
	}
	if e.Progress < 0 || e.Progress > 1 {
		return fmt.Errorf("progress %v out of range [0, 1]", e.Progress)
	}
	for i, chunk := range e.Chunks() {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("artifact chunk %d: %w", i, err)
		}
	}

	return nil
}

// Validate ensures the Chunk is in a valid state.
func (c Chunk) Validate() error {
	if c.ArtifactID == "" {
		return fmt.Errorf("artifact id cannot be empty")
	}
	for i, p := range c.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}

	return nil
}

// String returns a compact description of the event.
func (e Event) String() string {
	return fmt.Sprintf("Event{TaskID: %s, Seq: %d, Status: %s, Progress: %.2f, Chunks: %d}",
		e.TaskID, e.Seq, e.Status, e.Progress, len(e.Chunks()))
}
