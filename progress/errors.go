// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import "errors"

var (
	// ErrDuplicateEvent is returned when appending an event whose
	// sequence number was already applied. Re-deliveries are expected
	// under at-least-once relays; callers drop the event silently.
	ErrDuplicateEvent = errors.New("progress event already applied")

	// ErrLogSealed is returned when appending to a sealed log, and by
	// blocking reads once a sealed log is fully drained.
	ErrLogSealed = errors.New("progress log is sealed")

	// ErrTaskExists is returned when creating a log for a task id that
	// already has one.
	ErrTaskExists = errors.New("task log already exists")

	// ErrTerminal is returned when a reporter is asked to emit after it
	// already reported a terminal state.
	ErrTerminal = errors.New("task already reported a terminal state")
)
