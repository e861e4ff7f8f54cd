// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package echo provides the reference agents: a plain echo responder and
// a streaming variant that builds its response word by word. They are
// small enough to read in one sitting and exercise every path a real
// agent uses, which makes them the fixtures of choice for runtime and
// gateway tests.
package echo

import (
	"context"
	"strings"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/progress"
)

// Artifact names used by the echo agents.
const (
	// EchoArtifactName names the single artifact of the plain echo agent.
	EchoArtifactName = "Echo Response"

	// ProgressiveArtifactName names the in-flight chunks of the
	// streaming echo agent.
	ProgressiveArtifactName = "Progressive Response"

	// CompleteArtifactName names the finished artifact the streaming
	// echo agent returns.
	CompleteArtifactName = "Complete Response"
)

// New returns the plain echo agent. It reports coarse progress and
// returns "Echo: " plus the message text as a single artifact.
func New() agent.Agent {
	return agent.Agent{
		Name:        "echo",
		Description: "Echoes the message text back as a single artifact.",
		Handler:     handleEcho,
	}
}

// NewStreaming returns the streaming echo agent. It emits the response
// word by word as cumulative full-text chunks and returns the complete
// artifact on the ordinary return path.
func NewStreaming() agent.Agent {
	return agent.Agent{
		Name:        "streaming-echo",
		Description: "Echoes the message text back word by word over the push feed.",
		Streaming:   true,
		Handler:     handleStreamingEcho,
	}
}

func handleEcho(ctx context.Context, req agent.Request, reporter *progress.Reporter) (agent.Response, error) {
	if err := reporter.Working(ctx, 0.5); err != nil {
		return agent.Response{}, err
	}

	artifact := bridge.NewTextArtifact(
		bridge.ArtifactIDFor(req.TaskID), EchoArtifactName, "Echo: "+req.Message.Text())

	return agent.Response{Artifacts: []bridge.Artifact{*artifact}}, nil
}

func handleStreamingEcho(ctx context.Context, req agent.Request, reporter *progress.Reporter) (agent.Response, error) {
	artifactID := bridge.ArtifactIDFor(req.TaskID)
	text := "Echo: " + req.Message.Text()
	words := strings.Fields(text)

	// Cumulative full-text chunks: a subscriber that missed a chunk
	// still sees correct text on the next one.
	built := ""
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return agent.Response{}, err
		}
		if built == "" {
			built = word
		} else {
			built += " " + word
		}

		chunk := progress.TextChunk(artifactID, ProgressiveArtifactName, built)
		if err := reporter.Chunk(ctx, chunkProgress(i+1, len(words)), chunk); err != nil {
			return agent.Response{}, err
		}
	}

	artifact := bridge.NewTextArtifact(artifactID, CompleteArtifactName, text)

	return agent.Response{Artifacts: []bridge.Artifact{*artifact}}, nil
}

// chunkProgress maps chunk i of n onto the 0.3–0.9 progress band,
// reserving the space around it for task start and completion.
func chunkProgress(i, n int) float64 {
	if n == 0 {
		return 0.3
	}
	fraction := float64(i) / float64(n)
	if fraction > 0.9 {
		fraction = 0.9
	}
	return 0.3 + 0.6*fraction
}
