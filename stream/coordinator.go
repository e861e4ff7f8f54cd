// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/progress"
)

// Default pacing for the polling fallback.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxElapsed   = 2 * time.Minute
)

// EventStream is a push feed of wire events for one task. Next blocks for
// the next event and returns ErrEndOfStream once the task's log has been
// fully delivered. Session satisfies it.
type EventStream interface {
	Next(ctx context.Context) (bridge.StreamEvent, error)
	Close() error
}

// Streamer opens push streams by task id.
type Streamer interface {
	OpenStream(ctx context.Context, taskID string) (EventStream, error)
}

// Snapshotter reads point-in-time task views by task id.
type Snapshotter interface {
	Snapshot(ctx context.Context, taskID string) (progress.Snapshot, error)
}

// Coordinator follows one task on behalf of a subscriber, preferring the
// push stream and degrading once to a bounded-interval poll loop when the
// stream cannot be opened or drops mid-flight. Both paths run through one
// translator, so the subscriber sees a single continuous event sequence
// with no duplicates across the switch.
type Coordinator struct {
	streamer    Streamer
	snapshotter Snapshotter
	logger      *slog.Logger
	interval    time.Duration
	maxElapsed  time.Duration
	onFallback  func()
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPollInterval sets the delay between successful snapshot polls.
func WithPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxElapsed bounds how long consecutive failing polls are retried
// before Follow gives up.
func WithMaxElapsed(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.maxElapsed = d
		}
	}
}

// WithLogger sets the logger used by the coordinator.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithFallbackNotify registers a hook invoked each time a Follow call
// degrades from push to polling, typically to feed a counter.
func WithFallbackNotify(notify func()) CoordinatorOption {
	return func(c *Coordinator) {
		c.onFallback = notify
	}
}

// NewCoordinator creates a coordinator over a stream opener and a
// snapshot reader for the same task space.
func NewCoordinator(streamer Streamer, snapshotter Snapshotter, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		streamer:    streamer,
		snapshotter: snapshotter,
		logger:      slog.Default(),
		interval:    DefaultPollInterval,
		maxElapsed:  DefaultMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errDegrade marks stream failures the poll loop can absorb.
var errDegrade = errors.New("degrading to snapshot polling")

// sink counts the events pushed through a subscriber's emit callback.
type sink struct {
	emit  func(bridge.StreamEvent) error
	count int
}

func (s *sink) deliver(event bridge.StreamEvent) error {
	if err := s.emit(event); err != nil {
		return err
	}
	s.count++
	return nil
}

// Follow delivers the task's wire events to emit until the stream ends.
//
// It opens the push stream first. If the open fails, or the stream breaks
// for any reason other than a normal end or ctx cancellation, Follow
// switches to polling snapshots and feeds the diffs through the same
// translator; it never switches back. Follow returns nil once the final
// status update has been delivered, an emit error as soon as emit rejects
// an event, and ctx.Err() on cancellation.
func (c *Coordinator) Follow(ctx context.Context, taskID string, emit func(bridge.StreamEvent) error) error {
	translator := NewTranslator(taskID, bridge.ContextIDFor(taskID))
	out := &sink{emit: emit}

	switch err := c.followStream(ctx, taskID, translator, out); {
	case err == nil:
		return nil
	case errors.Is(err, errDegrade):
		if c.onFallback != nil {
			c.onFallback()
		}
	default:
		return err
	}

	return c.poll(ctx, taskID, translator, out)
}

// followStream runs the push phase. It returns nil on a normal end of
// stream and errDegrade when the poll loop should take over.
func (c *Coordinator) followStream(ctx context.Context, taskID string, translator *Translator, out *sink) error {
	stream, err := c.streamer.OpenStream(ctx, taskID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "opening event stream failed",
			slog.String("task_id", taskID),
			slog.Any("error", err))
		return errDegrade
	}
	defer stream.Close()

	for {
		event, err := stream.Next(ctx)
		switch {
		case err == nil:
			translator.Observe(event)
			if err := out.deliver(event); err != nil {
				return err
			}

		case errors.Is(err, ErrEndOfStream):
			return nil

		case ctx.Err() != nil:
			return ctx.Err()

		default:
			c.logger.WarnContext(ctx, "event stream interrupted",
				slog.String("task_id", taskID),
				slog.Any("error", err))
			return errDegrade
		}
	}
}

// poll runs the fallback phase: snapshot the task on a fixed cadence and
// emit whatever the translator has not delivered yet. Failing polls back
// off exponentially and reset on the next success.
func (c *Coordinator) poll(ctx context.Context, taskID string, translator *Translator, out *sink) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = c.interval
	retry.MaxInterval = 8 * c.interval
	retry.MaxElapsedTime = c.maxElapsed
	retry.Reset()

	for {
		snapshot, err := c.snapshotter.Snapshot(ctx, taskID)
		switch {
		case errors.Is(err, bridge.ErrTaskNotFound):
			// The task vanished between events, usually an evicted log.
			// Subscribers that already saw output get the unknown
			// terminal marker instead of an error.
			if out.count == 0 {
				return err
			}
			for _, event := range translator.Seal() {
				if err := out.deliver(event); err != nil {
					return err
				}
			}
			return nil

		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				return fmt.Errorf("polling task %s: %w", taskID, err)
			}
			c.logger.WarnContext(ctx, "snapshot poll failed",
				slog.String("task_id", taskID),
				slog.Duration("retry_in", wait),
				slog.Any("error", err))
			if err := sleep(ctx, wait); err != nil {
				return err
			}

		default:
			retry.Reset()
			for _, event := range translator.TranslateSnapshot(snapshot) {
				if err := out.deliver(event); err != nil {
					return err
				}
			}
			if translator.FinalSent() {
				return nil
			}
			if err := sleep(ctx, c.interval); err != nil {
				return err
			}
		}
	}
}

// sleep blocks for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
