// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus instruments, registered on an
// injected registry so tests can use isolated ones.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests   *prometheus.CounterVec
	tasksStarted  *prometheus.CounterVec
	activeStreams prometheus.Gauge
	streamEvents  *prometheus.CounterVec
	fallbacks     prometheus.Counter
}

// NewMetrics creates and registers the gateway instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_rpc_requests_total",
			Help: "JSON-RPC requests served, by method.",
		}, []string{"method"}),
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_tasks_started_total",
			Help: "Tasks started, by agent.",
		}, []string{"agent"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_active_streams",
			Help: "Currently open push subscriptions.",
		}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_stream_events_total",
			Help: "Wire events delivered to subscribers, by kind.",
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_stream_fallbacks_total",
			Help: "Subscriptions degraded from push to snapshot polling.",
		}),
	}

	registry.MustRegister(m.rpcRequests, m.tasksStarted, m.activeStreams, m.streamEvents, m.fallbacks)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
