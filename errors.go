// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "errors"

// Domain errors returned by task backends. The HTTP surface maps them to
// the corresponding JSON-RPC error codes.
var (
	// ErrTaskNotFound is returned when no task exists for an id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCancelable is returned when a cancel request reaches a
	// task that is already in a terminal state.
	ErrTaskNotCancelable = errors.New("task cannot be canceled")

	// ErrUnknownAgent is returned when a message addresses an agent
	// that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
)
