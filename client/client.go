// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the Go consumer of a bridge gateway. It speaks the
// JSON-RPC surface for starting, reading, and canceling tasks, decodes
// the Server-Sent Events push feed, and can follow a task through a
// coordinator so a broken push path degrades to snapshot polling.
package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/progress"
	"github.com/go-a2a/bridge/stream"
)

// AgentCardPath is the well-known path serving the gateway's agent card.
const AgentCardPath = "/.well-known/agent.json"

const defaultUserAgent = "bridge-client/1.0"

// Client talks to one bridge gateway.
type Client struct {
	url          string
	httpClient   *http.Client
	headers      map[string]string
	userAgent    string
	logger       *slog.Logger
	pollInterval time.Duration
}

// Client serves as both ends a coordinator needs.
var (
	_ stream.Streamer    = (*Client)(nil)
	_ stream.Snapshotter = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds a header to every request, e.g. an authorization
// token.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPollInterval sets the snapshot cadence Follow uses after it
// degrades to polling.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a client for the gateway at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:          url,
		httpClient:   http.DefaultClient,
		headers:      make(map[string]string),
		userAgent:    defaultUserAgent,
		logger:       slog.Default(),
		pollInterval: stream.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOption adjusts the params of one send.
type SendOption func(*bridge.MessageSendParams)

// ToAgent addresses the message to a named agent. Without it the
// gateway routes to its sole registered agent.
func ToAgent(name string) SendOption {
	return func(p *bridge.MessageSendParams) {
		if p.Metadata == nil {
			p.Metadata = make(map[string]any)
		}
		p.Metadata[bridge.MetadataAgent] = name
	}
}

// SendMessage starts a task and returns its initial view.
func (c *Client) SendMessage(ctx context.Context, message bridge.Message, opts ...SendOption) (*bridge.Task, error) {
	params := bridge.MessageSendParams{Message: message}
	for _, opt := range opts {
		opt(&params)
	}

	task := &bridge.Task{}
	if err := c.call(ctx, bridge.MethodMessageSend, params, task); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return task, nil
}

// GetTask reads the point-in-time view of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	task := &bridge.Task{}
	if err := c.call(ctx, bridge.MethodTasksGet, bridge.TaskQueryParams{ID: taskID}, task); err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return task, nil
}

// CancelTask cancels a running task and returns its terminal view.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*bridge.Task, error) {
	task := &bridge.Task{}
	if err := c.call(ctx, bridge.MethodTasksCancel, bridge.TaskIDParams{ID: taskID}, task); err != nil {
		return nil, fmt.Errorf("canceling task %s: %w", taskID, err)
	}
	return task, nil
}

// Snapshot reads the task over the polling surface and reconstructs its
// snapshot view. It makes the client usable as the snapshot end of a
// coordinator.
func (c *Client) Snapshot(ctx context.Context, taskID string) (progress.Snapshot, error) {
	task, err := c.GetTask(ctx, taskID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	return progress.SnapshotFromTask(task), nil
}

// Card fetches the gateway's agent card.
func (c *Client) Card(ctx context.Context) (*bridge.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating card request: %w", err)
	}
	c.setHeaders(req, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching agent card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching agent card: status %d", resp.StatusCode)
	}

	card := &bridge.AgentCard{}
	if err := json.UnmarshalRead(resp.Body, card); err != nil {
		return nil, fmt.Errorf("decoding agent card: %w", err)
	}
	return card, nil
}

// call performs one unary JSON-RPC exchange and decodes the result into
// result when it is non-nil.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	resp, err := c.post(ctx, method, params, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}

	var rpcResp bridge.JSONRPCResponse
	if err := json.UnmarshalRead(resp.Body, &rpcResp); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return domainError(rpcResp.Error)
	}
	if result == nil {
		return nil
	}

	// Result decoded generically; re-marshal into the caller's type.
	raw, err := json.Marshal(rpcResp.Result)
	if err != nil {
		return fmt.Errorf("re-encoding %s result: %w", method, err)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// post sends one JSON-RPC request and returns the raw response.
func (c *Client) post(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s params: %w", method, err)
	}
	body, err := json.Marshal(bridge.JSONRPCRequest{
		JSONRPCMessage: bridge.NewJSONRPCMessage(uuid.NewString()),
		Method:         method,
		Params:         jsontext.Value(raw),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	c.setHeaders(req, accept)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, accept string) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
}

// domainError maps gateway RPC errors back onto the domain sentinels, so
// callers branch with errors.Is the same way they would against a local
// backend.
func domainError(rpcErr *bridge.JSONRPCError) error {
	switch rpcErr.Code {
	case bridge.TaskNotFoundErrorCode:
		return bridge.ErrTaskNotFound
	case bridge.TaskNotCancelableErrorCode:
		return bridge.ErrTaskNotCancelable
	default:
		return rpcErr
	}
}
