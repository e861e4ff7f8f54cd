// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "errors"

var (
	// ErrEndOfStream is returned by Session.Next once the task's log is
	// sealed and every translated wire event has been delivered. It is
	// the normal end of a stream.
	ErrEndOfStream = errors.New("end of stream")

	// ErrIdleTimeout is returned by Session.Next when no new log data
	// arrived within the session's idle window while the task was still
	// running. It is a transport-level timeout, distinct from the
	// normal end: the task may still be in flight.
	ErrIdleTimeout = errors.New("stream idle timeout")

	// ErrSessionClosed is returned by Session.Next after Close.
	ErrSessionClosed = errors.New("stream session closed")
)
