// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/progress"
)

// Session is one subscriber's cursor over a task progress log. It reads
// raw progress events as they land, runs them through its own translator,
// and hands out wire events one at a time. Sessions never consume from
// the log, so any number of them can follow the same task and each sees
// the full translated sequence.
//
// Next must not be called concurrently; Close is safe from any goroutine.
type Session struct {
	log        *progress.Log
	translator *Translator
	logger     *slog.Logger

	idle    time.Duration
	skip    int
	release func()

	cursor  int
	pending []bridge.StreamEvent
	done    bool

	closed    atomic.Bool
	ended     atomic.Bool
	closeOnce sync.Once
}

var _ EventStream = (*Session)(nil)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIdleTimeout bounds how long a single Next call may wait for the
// next progress event. When the bound passes without one, Next returns
// ErrIdleTimeout and the session stays usable.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.idle = d
	}
}

// WithAfter resumes delivery after the n-th wire event. The translator
// still replays the whole log to rebuild its state; the first n outputs
// are suppressed rather than skipped over.
func WithAfter(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.skip = n
		}
	}
}

// WithReleaseFunc registers a hook invoked exactly once when the session
// closes, typically to drop an arena reference.
func WithReleaseFunc(release func()) SessionOption {
	return func(s *Session) {
		s.release = release
	}
}

// WithSessionLogger sets the logger used by the session.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session over log, delivering wire events scoped to
// contextID. The session starts at the beginning of the log.
func NewSession(log *progress.Log, contextID string, opts ...SessionOption) *Session {
	s := &Session{
		log:        log,
		translator: NewTranslator(log.TaskID(), contextID),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaskID returns the task the session follows.
func (s *Session) TaskID() string {
	return s.log.TaskID()
}

// Next returns the next wire event for this subscriber.
//
// It blocks until a progress event translates into output, then returns
// the translated events one per call. Once the log is sealed and every
// translated event has been delivered, Next returns ErrEndOfStream; a log
// sealed without a terminal status first yields the synthesized unknown
// terminal marker. An idle timeout surfaces as ErrIdleTimeout without
// ending the session, and a canceled ctx returns ctx.Err().
func (s *Session) Next(ctx context.Context) (bridge.StreamEvent, error) {
	for {
		if s.closed.Load() {
			return nil, ErrSessionClosed
		}
		if event, ok := s.pop(); ok {
			return event, nil
		}
		if s.done {
			s.ended.Store(true)
			return nil, ErrEndOfStream
		}

		events, err := s.wait(ctx)
		switch {
		case err == nil:
			s.cursor += len(events)
			for _, event := range events {
				s.pending = append(s.pending, s.translator.Translate(event)...)
			}

		case errors.Is(err, progress.ErrLogSealed):
			s.done = true
			if sealed := s.translator.Seal(); len(sealed) > 0 {
				s.logger.WarnContext(ctx, "progress log sealed without a terminal status",
					slog.String("task_id", s.TaskID()))
				s.pending = append(s.pending, sealed...)
			}

		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, ErrIdleTimeout

		default:
			return nil, err
		}
	}
}

// wait blocks for log events at the session cursor, applying the idle
// timeout when one is configured.
func (s *Session) wait(ctx context.Context) ([]progress.Event, error) {
	if s.idle <= 0 {
		return s.log.Wait(ctx, s.cursor)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.idle)
	defer cancel()
	return s.log.Wait(waitCtx, s.cursor)
}

// pop hands out the next pending wire event, honoring the resume offset.
func (s *Session) pop() (bridge.StreamEvent, bool) {
	for len(s.pending) > 0 {
		event := s.pending[0]
		s.pending = s.pending[1:]
		if s.skip > 0 {
			s.skip--
			continue
		}
		return event, true
	}
	return nil, false
}

// Drain collects every remaining wire event until the stream ends. It
// returns the events delivered so far alongside any error other than
// ErrEndOfStream.
func (s *Session) Drain(ctx context.Context) ([]bridge.StreamEvent, error) {
	var out []bridge.StreamEvent
	for {
		event, err := s.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, event)
	}
}

// Progress returns the high-water progress the session has translated.
func (s *Session) Progress() float64 {
	return s.translator.Progress()
}

// Ended reports whether the session delivered its complete stream. It
// stays false for a subscriber that closed before the end, which is how
// log owners tell a drained session from a disconnect.
func (s *Session) Ended() bool {
	return s.ended.Load()
}

// Close releases the session. It is idempotent and does not interrupt a
// concurrently blocked Next; cancel that call's context instead.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.release != nil {
			s.release()
		}
	})
	return nil
}
