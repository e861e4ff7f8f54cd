// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/go-a2a/bridge"
)

// reconnectWindow bounds how long Subscribe keeps retrying a broken
// connection before giving up.
const reconnectWindow = 60 * time.Second

// Subscribe follows a task over the GET events endpoint, reconnecting
// with exponential backoff when the connection drops and resuming from
// the last delivered event id. A non-empty lastEventID starts the feed
// after that event.
//
// Subscribe calls fn for every wire event. It returns nil once the feed
// has been fully delivered, fn's error as soon as fn rejects an event,
// and ctx.Err() on cancellation.
func (c *Client) Subscribe(ctx context.Context, taskID, lastEventID string, fn func(bridge.StreamEvent) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sseClient := sse.NewClient(c.url + "/v1/tasks/" + taskID + "/events")
	sseClient.Connection = c.httpClient
	for key, value := range c.headers {
		sseClient.Headers[key] = value
	}
	sseClient.Headers["User-Agent"] = c.userAgent
	if lastEventID != "" {
		sseClient.LastEventID.Store([]byte(lastEventID))
	}

	// Once the final status update arrived, a dropped connection is the
	// normal end of the feed, not a failure to retry.
	var finalSeen atomic.Bool

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = reconnectWindow
	sseClient.ReconnectStrategy = backoff.WithContext(expBackoff, ctx)
	sseClient.ReconnectNotify = func(err error, next time.Duration) {
		if finalSeen.Load() {
			cancel()
			return
		}
		c.logger.Warn("event subscription reconnecting",
			slog.String("task_id", taskID),
			slog.Duration("retry_in", next),
			slog.Any("error", err))
	}

	events := make(chan *sse.Event, 16)
	if err := sseClient.SubscribeChanWithContext(ctx, "", events); err != nil {
		return fmt.Errorf("subscribing to task %s: %w", taskID, err)
	}
	defer sseClient.Unsubscribe(events)

	deliver := func(msg *sse.Event) error {
		if len(msg.Data) == 0 {
			return nil
		}
		event, err := bridge.UnmarshalStreamEvent(msg.Data)
		if err != nil {
			return fmt.Errorf("decoding subscription event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
		if bridge.IsFinalEvent(event) {
			finalSeen.Store(true)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			if !finalSeen.Load() {
				return ctx.Err()
			}
			// Hand over whatever arrived before the feed ended.
			for {
				select {
				case msg, ok := <-events:
					if !ok {
						return nil
					}
					if err := deliver(msg); err != nil {
						return err
					}
				default:
					return nil
				}
			}

		case msg, ok := <-events:
			if !ok {
				if finalSeen.Load() {
					return nil
				}
				return fmt.Errorf("subscription to task %s ended before the final status update", taskID)
			}
			if err := deliver(msg); err != nil {
				return err
			}
		}
	}
}
