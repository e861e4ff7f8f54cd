// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"context"
	"fmt"
)

// Relay carries progress events from an executor toward the log that
// owns the event's task id. The executor never holds the log itself; the
// relay resolves the indirection, which lets the log live in another
// goroutine, another process, or behind a durable-execution engine.
type Relay interface {
	// Deliver hands one event to the task's log. Delivery is
	// at-least-once: implementations may retry, and logs drop
	// re-delivered sequence numbers.
	Deliver(ctx context.Context, event Event) error
}

// RelayFunc adapts a function to the Relay interface.
type RelayFunc func(ctx context.Context, event Event) error

var _ Relay = (RelayFunc)(nil)

// Deliver calls f.
func (f RelayFunc) Deliver(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// ArenaRelay delivers events to logs registered in a local arena. It is
// the loopback relay used when executor and log share a process.
type ArenaRelay struct {
	arena *Arena
}

var _ Relay = (*ArenaRelay)(nil)

// NewArenaRelay creates a relay over the given arena.
func NewArenaRelay(arena *Arena) *ArenaRelay {
	return &ArenaRelay{arena: arena}
}

// Deliver appends the event to the log registered for its task id.
func (r *ArenaRelay) Deliver(ctx context.Context, event Event) error {
	log, err := r.arena.Get(event.TaskID)
	if err != nil {
		return fmt.Errorf("deliver progress event for task %q: %w", event.TaskID, err)
	}

	return log.Append(event)
}
