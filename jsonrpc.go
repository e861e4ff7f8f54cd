// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"github.com/go-json-experiment/json/jsontext"
)

// Bridge RPC method names.
const (
	// MethodMessageSend is the method name for sending a message that
	// starts a task.
	MethodMessageSend = "message/send"
	// MethodMessageStream is the method name for sending a message and
	// subscribing to the task's wire events in one call.
	MethodMessageStream = "message/stream"
	// MethodTasksGet is the method name for reading a task snapshot.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel is the method name for canceling a task.
	MethodTasksCancel = "tasks/cancel"
	// MethodTasksResubscribe is the method name for resubscribing to a
	// task's wire events.
	MethodTasksResubscribe = "tasks/resubscribe"
)

// JSONRPCMessage is the base structure for all JSON-RPC 2.0 messages.
type JSONRPCMessage struct {
	// JSONRPC version, always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID is a unique identifier for request/response correlation.
	ID any `json:"id,omitzero"`
}

// NewJSONRPCMessage creates a new [JSONRPCMessage] with the given id.
func NewJSONRPCMessage(id any) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPCMessage

	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains parameters for the method.
	Params jsontext.Value `json:"params,omitzero"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *JSONRPCError) Error() string {
	return e.Message
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPCMessage

	// Result contains the successful result data.
	// Mutually exclusive with Error.
	Result any `json:"result,omitzero"`
	// Error contains an error object if the request failed.
	// Mutually exclusive with Result.
	Error *JSONRPCError `json:"error,omitzero"`
}

// NewJSONRPCResponse creates a successful response carrying result.
func NewJSONRPCResponse(id any, result any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPCMessage: NewJSONRPCMessage(id),
		Result:         result,
	}
}

// NewJSONRPCErrorResponse creates a failed response carrying rpcErr.
func NewJSONRPCErrorResponse(id any, rpcErr *JSONRPCError) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPCMessage: NewJSONRPCMessage(id),
		Error:          rpcErr,
	}
}

// MessageSendParams are the parameters for message/send and message/stream.
type MessageSendParams struct {
	// Message to deliver to the agent.
	Message Message `json:"message"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskQueryParams are the parameters for tasks/get.
type TaskQueryParams struct {
	// ID of the task.
	ID string `json:"id"`

	// HistoryLength limits how many history messages to include.
	HistoryLength int `json:"historyLength,omitzero"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskIDParams are the parameters for tasks/cancel.
type TaskIDParams struct {
	// ID of the task.
	ID string `json:"id"`

	// Extension metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskResubscribeParams are the parameters for tasks/resubscribe.
type TaskResubscribeParams struct {
	// ID of the task.
	ID string `json:"id"`

	// LastEventID resumes delivery after the wire event with this id,
	// as carried by the SSE id field. Empty replays from the start.
	LastEventID string `json:"lastEventId,omitzero"`
}

// Standard JSON-RPC 2.0 error codes.
const (
	// JSONParseErrorCode indicates invalid JSON payload.
	JSONParseErrorCode = -32700
	// InvalidRequestErrorCode indicates request payload validation error.
	InvalidRequestErrorCode = -32600
	// MethodNotFoundErrorCode indicates the method does not exist.
	MethodNotFoundErrorCode = -32601
	// InvalidParamsErrorCode indicates invalid method parameters.
	InvalidParamsErrorCode = -32602
	// InternalErrorCode indicates an internal server error.
	InternalErrorCode = -32603
)

// Bridge specific error codes.
const (
	// TaskNotFoundErrorCode indicates the specified task id was not found.
	TaskNotFoundErrorCode = -32001
	// TaskNotCancelableErrorCode indicates the task is in a terminal
	// state and cannot be canceled.
	TaskNotCancelableErrorCode = -32002
	// UnsupportedOperationErrorCode indicates the requested operation is
	// not supported.
	UnsupportedOperationErrorCode = -32004
)

// NewJSONParseError creates a new JSONParseError.
func NewJSONParseError() *JSONRPCError {
	return &JSONRPCError{
		Code:    JSONParseErrorCode,
		Message: "Invalid JSON payload",
	}
}

// NewInvalidRequestError creates a new InvalidRequestError.
func NewInvalidRequestError() *JSONRPCError {
	return &JSONRPCError{
		Code:    InvalidRequestErrorCode,
		Message: "Request payload validation error",
	}
}

// NewMethodNotFoundError creates a new MethodNotFoundError.
func NewMethodNotFoundError() *JSONRPCError {
	return &JSONRPCError{
		Code:    MethodNotFoundErrorCode,
		Message: "Method not found",
	}
}

// NewInvalidParamsError creates a new InvalidParamsError.
func NewInvalidParamsError() *JSONRPCError {
	return &JSONRPCError{
		Code:    InvalidParamsErrorCode,
		Message: "Invalid parameters",
	}
}

// NewInternalError creates a new InternalError.
func NewInternalError() *JSONRPCError {
	return &JSONRPCError{
		Code:    InternalErrorCode,
		Message: "Internal error",
	}
}

// NewTaskNotFoundError creates a new TaskNotFoundError.
func NewTaskNotFoundError() *JSONRPCError {
	return &JSONRPCError{
		Code:    TaskNotFoundErrorCode,
		Message: "Task not found",
	}
}

// NewTaskNotCancelableError creates a new TaskNotCancelableError.
func NewTaskNotCancelableError() *JSONRPCError {
	return &JSONRPCError{
		Code:    TaskNotCancelableErrorCode,
		Message: "Task cannot be canceled",
	}
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError() *JSONRPCError {
	return &JSONRPCError{
		Code:    UnsupportedOperationErrorCode,
		Message: "This operation is not supported",
	}
}
