// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/stream"
)

// SendMessageStream starts a task and subscribes to its wire events in
// one call. The returned stream ends with [stream.ErrEndOfStream] once
// the gateway has delivered the task's full event sequence.
func (c *Client) SendMessageStream(ctx context.Context, message bridge.Message, opts ...SendOption) (stream.EventStream, error) {
	params := bridge.MessageSendParams{Message: message}
	for _, opt := range opts {
		opt(&params)
	}
	return c.openSSE(ctx, bridge.MethodMessageStream, params)
}

// Resubscribe reopens the wire event feed of an existing task. A
// non-empty afterID resumes delivery after the event that carried it as
// its SSE id; empty replays from the start.
func (c *Client) Resubscribe(ctx context.Context, taskID, afterID string) (stream.EventStream, error) {
	return c.openSSE(ctx, bridge.MethodTasksResubscribe, bridge.TaskResubscribeParams{
		ID:          taskID,
		LastEventID: afterID,
	})
}

// OpenStream implements [stream.Streamer] by resubscribing from the
// start, which lets a coordinator drive the client like any other
// backend.
func (c *Client) OpenStream(ctx context.Context, taskID string) (stream.EventStream, error) {
	return c.Resubscribe(ctx, taskID, "")
}

// Follow delivers the task's wire events to emit until the final status
// update, preferring the push feed and degrading once to snapshot
// polling over tasks/get when the feed cannot be opened or breaks.
func (c *Client) Follow(ctx context.Context, taskID string, emit func(bridge.StreamEvent) error) error {
	coordinator := stream.NewCoordinator(c, c,
		stream.WithPollInterval(c.pollInterval),
		stream.WithLogger(c.logger),
	)
	return coordinator.Follow(ctx, taskID, emit)
}

// openSSE sends a streaming JSON-RPC request and wraps the SSE response
// body. The gateway reports pre-stream failures as a JSON body instead
// of an event stream, so the content type decides which way to decode.
func (c *Client) openSSE(ctx context.Context, method string, params any) (stream.EventStream, error) {
	resp, err := c.post(ctx, method, params, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer resp.Body.Close()
		var rpcResp bridge.JSONRPCResponse
		if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
			return nil, fmt.Errorf("decoding %s response: %w", method, err)
		}
		if rpcResp.Error != nil {
			return nil, domainError(rpcResp.Error)
		}
		return nil, fmt.Errorf("%s: expected an event stream, got %q", method, resp.Header.Get("Content-Type"))
	}

	return newSSEStream(resp.Body), nil
}

// sseStream decodes one SSE response body into wire events.
type sseStream struct {
	reader *bufio.Reader
	closer io.Closer

	mu     sync.Mutex
	closed bool
	lastID string
}

var _ stream.EventStream = (*sseStream)(nil)

func newSSEStream(body io.ReadCloser) *sseStream {
	return &sseStream{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

// Next reads frames until one carries a data line, decodes it, and
// returns the event. The gateway closing the stream reads as
// [stream.ErrEndOfStream].
func (s *sseStream) Next(ctx context.Context) (bridge.StreamEvent, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, stream.ErrSessionClosed
	}

	var id string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, stream.ErrEndOfStream
			}
			return nil, fmt.Errorf("reading event stream: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimSpace(line[3:])

		case strings.HasPrefix(line, "data:"):
			event, err := bridge.UnmarshalStreamEvent([]byte(strings.TrimSpace(line[5:])))
			if err != nil {
				return nil, fmt.Errorf("decoding event stream frame: %w", err)
			}
			if id != "" {
				s.mu.Lock()
				s.lastID = id
				s.mu.Unlock()
			}
			return event, nil
		}
	}
}

// LastEventID returns the SSE id of the last decoded event. Feeding it
// to Resubscribe resumes a dropped stream without duplicates.
func (s *sseStream) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// Close releases the underlying connection.
func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}
