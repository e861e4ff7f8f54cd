// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command bridge-gateway serves the consumer-facing HTTP surface over a
// Temporal-backed task service.
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/go-a2a/bridge/agent"
	"github.com/go-a2a/bridge/agent/echo"
	"github.com/go-a2a/bridge/gateway"
	"github.com/go-a2a/bridge/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bridge-gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the gateway config file")
	flag.Parse()

	cfg, err := gateway.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(cfg.Logging.Level),
	}))

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connecting to temporal at %s: %w", cfg.Temporal.HostPort, err)
	}
	defer temporalClient.Close()
	logger.Info("connected to temporal",
		zap.String("host_port", cfg.Temporal.HostPort),
		zap.String("namespace", cfg.Temporal.Namespace),
	)

	service := temporal.NewService(temporalClient, hostedAgents(),
		temporal.WithTaskQueue(cfg.Temporal.TaskQueue),
		temporal.WithStreamIdleTimeout(cfg.Stream.IdleTimeout()),
		temporal.WithServiceLogger(slogger),
	)
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return gateway.NewServer(service, cfg, logger).Run(ctx)
}

// hostedAgents lists the agents the workers on the task queue serve.
func hostedAgents() []agent.Agent {
	return []agent.Agent{echo.New(), echo.NewStreaming()}
}

func buildLogger(cfg gateway.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
