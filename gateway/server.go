// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway serves the consumer-facing HTTP surface of the
// bridge: a JSON-RPC endpoint for starting, reading, and canceling
// tasks, and Server-Sent Events for the push feed. Streams run through
// a coordinator, so a backend whose push path fails degrades to
// snapshot polling without the subscriber noticing.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-json-experiment/json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-a2a/bridge"
	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/stream"
)

// Backend is the task surface the gateway fronts. The Temporal service
// and the local runtime both satisfy it.
type Backend interface {
	StartTask(ctx context.Context, agentName string, message bridge.Message) (*bridge.Task, error)
	GetTask(ctx context.Context, taskID string) (*bridge.Task, error)
	CancelTask(ctx context.Context, taskID string) (*bridge.Task, error)
	Agents() []agent.Agent

	stream.Streamer
	stream.Snapshotter
}

// Server routes the gateway HTTP surface.
type Server struct {
	router  chi.Router
	backend Backend
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
}

// NewServer wires the routes over a backend.
func NewServer(backend Backend, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/", s.handleRPC)
	r.Get("/v1/tasks/{id}/events", s.handleEvents)
	r.Get("/.well-known/agent.json", s.handleCard)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves the configured address until ctx ends, then drains within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.cfg.Server.Addr(),
		Handler:     s.router,
		ReadTimeout: time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gateway listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(s.cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// logRequests is the zap access-log middleware.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// handleRPC dispatches the JSON-RPC surface. message/stream responds as
// an SSE stream instead of a JSON body; everything else is unary.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req bridge.JSONRPCRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(nil, bridge.NewJSONParseError()))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, bridge.NewInvalidRequestError()))
		return
	}

	s.metrics.rpcRequests.WithLabelValues(req.Method).Inc()

	switch req.Method {
	case bridge.MethodMessageSend:
		s.handleMessageSend(w, r, req)
	case bridge.MethodMessageStream:
		s.handleMessageStream(w, r, req)
	case bridge.MethodTasksGet:
		s.handleTasksGet(w, r, req)
	case bridge.MethodTasksCancel:
		s.handleTasksCancel(w, r, req)
	case bridge.MethodTasksResubscribe:
		s.handleTasksResubscribe(w, r, req)
	default:
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, bridge.NewMethodNotFoundError()))
	}
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request, req bridge.JSONRPCRequest) {
	task, rpcErr := s.startTask(r.Context(), req)
	if rpcErr != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, rpcErr))
		return
	}
	s.writeRPC(w, bridge.NewJSONRPCResponse(req.ID, task))
}

func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request, req bridge.JSONRPCRequest) {
	task, rpcErr := s.startTask(r.Context(), req)
	if rpcErr != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, rpcErr))
		return
	}
	s.streamTask(w, r, task.ID, 0)
}

func (s *Server) handleTasksGet(w http.ResponseWriter, r *http.Request, req bridge.JSONRPCRequest) {
	var params bridge.TaskQueryParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, bridge.NewInvalidParamsError()))
		return
	}

	task, err := s.backend.GetTask(r.Context(), params.ID)
	if err != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, s.rpcError(err)))
		return
	}

	// Failed tasks surface their detail as a status message.
	if task.Status.State == bridge.TaskStateFailed {
		if detail, ok := task.Metadata[bridge.MetadataError].(string); ok && detail != "" {
			message := bridge.NewMessage(bridge.RoleAgent, bridge.TextPart(detail))
			message.TaskID = task.ID
			message.ContextID = task.ContextID
			task.Status.Message = &message
		}
	}

	s.writeRPC(w, bridge.NewJSONRPCResponse(req.ID, task))
}

func (s *Server) handleTasksCancel(w http.ResponseWriter, r *http.Request, req bridge.JSONRPCRequest) {
	var params bridge.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, bridge.NewInvalidParamsError()))
		return
	}

	task, err := s.backend.CancelTask(r.Context(), params.ID)
	if err != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, s.rpcError(err)))
		return
	}
	s.writeRPC(w, bridge.NewJSONRPCResponse(req.ID, task))
}

func (s *Server) handleTasksResubscribe(w http.ResponseWriter, r *http.Request, req bridge.JSONRPCRequest) {
	var params bridge.TaskResubscribeParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, bridge.NewInvalidParamsError()))
		return
	}

	if _, err := s.backend.Snapshot(r.Context(), params.ID); err != nil {
		s.writeRPC(w, bridge.NewJSONRPCErrorResponse(req.ID, s.rpcError(err)))
		return
	}

	s.streamTask(w, r, params.ID, afterOrdinal(params.LastEventID))
}

// handleEvents is the plain SSE subscription endpoint. It honors the
// Last-Event-ID header the same way tasks/resubscribe honors its
// lastEventId parameter.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	if _, err := s.backend.Snapshot(r.Context(), taskID); err != nil {
		if errors.Is(err, bridge.ErrTaskNotFound) {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	s.streamTask(w, r, taskID, afterOrdinal(r.Header.Get("Last-Event-ID")))
}

// afterOrdinal maps a last-received event id onto the number of wire
// events to suppress on replay. Unparsable ids replay from the start.
func afterOrdinal(lastEventID string) int {
	if lastEventID == "" {
		return 0
	}
	n, err := strconv.Atoi(lastEventID)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}

// streamTask serves one subscriber: wire events framed as SSE with
// ordinal ids, delivered through a coordinator so the push path can
// degrade to polling. A write that misses its deadline ends only this
// subscription. The first skip events are suppressed but keep their
// ordinals, which is what makes Last-Event-ID resumption line up.
func (s *Server) streamTask(w http.ResponseWriter, r *http.Request, taskID string, skip int) {
	sse, err := newSSEWriter(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sse.init()

	s.metrics.activeStreams.Inc()
	defer s.metrics.activeStreams.Dec()

	rc := http.NewResponseController(w)
	coordinator := stream.NewCoordinator(s.backend, s.backend,
		stream.WithPollInterval(s.cfg.Stream.PollInterval()),
		stream.WithFallbackNotify(s.metrics.fallbacks.Inc),
	)

	ordinal := 0
	err = coordinator.Follow(r.Context(), taskID, func(event bridge.StreamEvent) error {
		current := ordinal
		ordinal++
		if current < skip {
			return nil
		}

		if err := rc.SetWriteDeadline(time.Now().Add(s.cfg.Stream.WriteTimeout())); err != nil {
			s.logger.Debug("write deadline unsupported", zap.Error(err))
		}
		if err := sse.writeEvent(current, event); err != nil {
			return err
		}
		s.metrics.streamEvents.WithLabelValues(event.EventType()).Inc()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("stream ended abnormally",
			zap.String("task_id", taskID),
			zap.Error(err))
	}
}

// startTask decodes send params and starts the task on the addressed
// agent.
func (s *Server) startTask(ctx context.Context, req bridge.JSONRPCRequest) (*bridge.Task, *bridge.JSONRPCError) {
	var params bridge.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, bridge.NewInvalidParamsError()
	}
	if err := params.Message.Validate(); err != nil {
		return nil, bridge.NewInvalidParamsError()
	}

	agentName, err := s.resolveAgent(params)
	if err != nil {
		return nil, bridge.NewInvalidParamsError()
	}

	task, err := s.backend.StartTask(ctx, agentName, params.Message)
	if err != nil {
		return nil, s.rpcError(err)
	}

	s.metrics.tasksStarted.WithLabelValues(agentName).Inc()
	return task, nil
}

// resolveAgent picks the agent a send addresses: the metadata entry
// when present, otherwise the sole registered agent.
func (s *Server) resolveAgent(params bridge.MessageSendParams) (string, error) {
	if name, ok := params.Metadata[bridge.MetadataAgent].(string); ok && name != "" {
		return name, nil
	}

	agents := s.backend.Agents()
	if len(agents) == 1 {
		return agents[0].Name, nil
	}
	return "", fmt.Errorf("message does not name an agent and %d are registered", len(agents))
}

// handleCard serves the agent card. The streaming capability reflects
// the declarations of the registered agents, not an inspection of their
// handlers.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	agents := s.backend.Agents()

	card := bridge.AgentCard{
		Name:               s.cfg.Card.Name,
		Description:        s.cfg.Card.Description,
		URL:                s.cfg.Card.URL,
		Version:            s.cfg.Card.Version,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
	for _, a := range agents {
		if a.Streaming {
			card.Capabilities.Streaming = true
		}
		skill := bridge.AgentSkill{
			ID:          a.Name,
			Name:        a.Name,
			Description: a.Description,
		}
		if a.Streaming {
			skill.Tags = []string{"streaming"}
		}
		card.Skills = append(card.Skills, skill)
	}

	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rpcError maps backend errors onto JSON-RPC error objects.
func (s *Server) rpcError(err error) *bridge.JSONRPCError {
	switch {
	case errors.Is(err, bridge.ErrTaskNotFound):
		return bridge.NewTaskNotFoundError()
	case errors.Is(err, bridge.ErrTaskNotCancelable):
		return bridge.NewTaskNotCancelableError()
	case errors.Is(err, bridge.ErrUnknownAgent):
		return bridge.NewInvalidParamsError()
	default:
		s.logger.Error("backend request failed", zap.Error(err))
		return bridge.NewInternalError()
	}
}

func (s *Server) writeRPC(w http.ResponseWriter, resp bridge.JSONRPCResponse) {
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, v); err != nil {
		s.logger.Error("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
