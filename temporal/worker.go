// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package temporal

import (
	"context"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/go-a2a/bridge/agent"
)

// WorkerConfig configures a task worker.
type WorkerConfig struct {
	// TaskQueue the worker listens on. Empty means DefaultTaskQueue.
	TaskQueue string

	// Agents the worker hosts.
	Agents []agent.Agent
}

// Worker runs task workflows and agent activities for one task queue.
type Worker struct {
	worker worker.Worker
	logger *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger handed to the activities.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a worker hosting the configured agents. The
// workflow and activity register under the fixed names the service side
// addresses them by.
func NewWorker(c client.Client, cfg WorkerConfig, opts ...WorkerOption) (*Worker, error) {
	agents, err := agent.Index(cfg.Agents)
	if err != nil {
		return nil, err
	}

	queue := cfg.TaskQueue
	if queue == "" {
		queue = DefaultTaskQueue
	}

	w := &Worker{
		worker: worker.New(c, queue, worker.Options{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.worker.RegisterWorkflowWithOptions(TaskWorkflow, workflow.RegisterOptions{Name: WorkflowTypeTask})
	w.worker.RegisterActivityWithOptions(
		NewActivities(c, agents, w.logger).Run,
		activity.RegisterOptions{Name: ActivityAgentRun},
	)

	return w, nil
}

// Run serves the task queue until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	stop := make(chan any)
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	return w.worker.Run(stop)
}
