// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"net/http"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/bridge"
)

// sseWriter frames wire events as Server-Sent Events. Each event rides
// in one frame: an id line carrying the event's ordinal, then the JSON
// payload on a data line. Ordinals let a reconnecting subscriber resume
// with Last-Event-ID.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &sseWriter{w: w, f: f}, nil
}

// init sets the stream headers and flushes them to commit the response.
func (s *sseWriter) init() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.w.WriteHeader(http.StatusOK)
	s.f.Flush()
}

// writeEvent frames one wire event under the given ordinal.
func (s *sseWriter) writeEvent(ordinal int, event bridge.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\ndata: %s\n\n", ordinal, data); err != nil {
		return fmt.Errorf("write event %d: %w", ordinal, err)
	}
	s.f.Flush()
	return nil
}
