// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"testing"

	"github.com/go-json-experiment/json"
)

func TestJSONRPCRequest_Decode(t *testing.T) {
	raw := `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"messageId":"msg-1","role":"user","parts":[{"kind":"text","text":"hello"}],"kind":"message"}}}`

	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if req.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q, want %q", req.JSONRPC, "2.0")
	}
	if req.Method != MethodMessageSend {
		t.Errorf("method = %q, want %q", req.Method, MethodMessageSend)
	}

	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("Unmarshal(params) error = %v", err)
	}
	if got := params.Message.Text(); got != "hello" {
		t.Errorf("message text = %q, want %q", got, "hello")
	}
}

func TestJSONRPCResponse_Encode(t *testing.T) {
	tests := []struct {
		name     string
		response JSONRPCResponse
		expected string
	}{
		{
			name:     "success result",
			response: NewJSONRPCResponse("req-1", map[string]any{"ok": true}),
			expected: `{"jsonrpc":"2.0","id":"req-1","result":{"ok":true}}`,
		},
		{
			name:     "error result",
			response: NewJSONRPCErrorResponse(float64(7), NewTaskNotFoundError()),
			expected: `{"jsonrpc":"2.0","id":7,"error":{"code":-32001,"message":"Task not found"}}`,
		},
		{
			name:     "null id on parse failure",
			response: NewJSONRPCErrorResponse(nil, NewJSONParseError()),
			expected: `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Invalid JSON payload"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.response)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Marshal() = %s, want %s", data, tt.expected)
			}
		})
	}
}

func TestJSONRPCErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		rpcErr   *JSONRPCError
		expected int
	}{
		{"parse error", NewJSONParseError(), -32700},
		{"invalid request", NewInvalidRequestError(), -32600},
		{"method not found", NewMethodNotFoundError(), -32601},
		{"invalid params", NewInvalidParamsError(), -32602},
		{"internal error", NewInternalError(), -32603},
		{"task not found", NewTaskNotFoundError(), -32001},
		{"task not cancelable", NewTaskNotCancelableError(), -32002},
		{"unsupported operation", NewUnsupportedOperationError(), -32004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rpcErr.Code != tt.expected {
				t.Errorf("code = %d, want %d", tt.rpcErr.Code, tt.expected)
			}
			if tt.rpcErr.Message == "" {
				t.Error("Expected non-empty message")
			}
			if tt.rpcErr.Error() != tt.rpcErr.Message {
				t.Errorf("Error() = %q, want %q", tt.rpcErr.Error(), tt.rpcErr.Message)
			}
		})
	}
}
