// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
)

// Artifact represents an identity-stable unit of task output that may be
// delivered incrementally across multiple chunks.
type Artifact struct {
	// ArtifactID is assigned once per logical response and reused by
	// every chunk that contributes to it.
	ArtifactID string `json:"artifactId"`

	// Optional name for the artifact. It may vary between chunks.
	Name string `json:"name,omitzero"`

	// Optional description for the artifact.
	Description string `json:"description,omitzero"`

	// Parts holds the artifact content.
	Parts []Part `json:"parts"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextArtifact creates a single-part text Artifact.
func NewTextArtifact(artifactID, name, text string) *Artifact {
	return &Artifact{
		ArtifactID: artifactID,
		Name:       name,
		Parts:      []Part{TextPart(text)},
	}
}

// Text returns the concatenated text content of the artifact parts.
func (a *Artifact) Text() string {
	var out string
	for _, p := range a.Parts {
		if p.Kind == PartKindText {
			out += p.Text
		}
	}

	return out
}

// Clone returns a deep copy of the artifact. Readers hand out clones so
// that no consumer can observe a partially applied update.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}

	out := &Artifact{
		ArtifactID:  a.ArtifactID,
		Name:        a.Name,
		Description: a.Description,
	}
	if a.Parts != nil {
		out.Parts = make([]Part, len(a.Parts))
		copy(out.Parts, a.Parts)
	}
	if a.Metadata != nil {
		out.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}

	return out
}

// Validate ensures the Artifact is in a valid state.
func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact id cannot be empty")
	}
	for i, p := range a.Parts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}

	return nil
}
