// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command echo-agent runs a Temporal worker hosting the echo agents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"

	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/agent/echo"
	"github.com/go-a2a/bridge/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "echo-agent:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		hostPort  = flag.String("temporal-host", "localhost:7233", "temporal frontend host:port")
		namespace = flag.String("temporal-namespace", "default", "temporal namespace")
		taskQueue = flag.String("task-queue", temporal.DefaultTaskQueue, "task queue to serve")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  *hostPort,
		Namespace: *namespace,
	})
	if err != nil {
		return fmt.Errorf("connecting to temporal at %s: %w", *hostPort, err)
	}
	defer temporalClient.Close()

	worker, err := temporal.NewWorker(temporalClient, temporal.WorkerConfig{
		TaskQueue: *taskQueue,
		Agents:    []agent.Agent{echo.New(), echo.NewStreaming()},
	}, temporal.WithWorkerLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker starting",
		slog.String("host_port", *hostPort),
		slog.String("task_queue", *taskQueue),
	)
	return worker.Run(ctx)
}
