// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the proof graph
// service.
//
// # Description
//
// Metrics cover three layers:
//   - Analysis calls (outcome, attempts, latency)
//   - Exploration sessions (status, graph size, level width, duration)
//   - The websocket endpoint (open connections, events written)
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every method is safe on a nil *Metrics, which records nothing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/proofgraph/services/prover/explorer"
)

const metricsNamespace = "proofgraph"

// Metrics holds every collector the service exports.
type Metrics struct {
	// AnalysisTotal counts Analyze calls. Labels: outcome (success, degraded, cached)
	AnalysisTotal *prometheus.CounterVec

	// AnalysisAttempts observes backend calls per Analyze.
	AnalysisAttempts prometheus.Histogram

	// AnalysisDuration measures Analyze latency. Labels: outcome
	AnalysisDuration *prometheus.HistogramVec

	// SessionsTotal counts finished sessions. Labels: status (completed, aborted, failed)
	SessionsTotal *prometheus.CounterVec

	SessionNodes    prometheus.Histogram
	SessionDuration prometheus.Histogram

	// LevelWidth observes how many nodes each level dispatched.
	LevelWidth prometheus.Histogram

	ActiveConnections prometheus.Gauge

	// EventsTotal counts events written to clients. Labels: type
	EventsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AnalysisTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Analysis requests by outcome",
		}, []string{"outcome"}),
		AnalysisAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "analysis",
			Name:      "attempts",
			Help:      "Backend calls made per analysis request",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis latency including retries",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "explorer",
			Name:      "sessions_total",
			Help:      "Exploration sessions by final status",
		}, []string{"status"}),
		SessionNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "explorer",
			Name:      "session_nodes",
			Help:      "Nodes created per session",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "explorer",
			Name:      "session_duration_seconds",
			Help:      "Wall time per session",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LevelWidth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "explorer",
			Name:      "level_width",
			Help:      "Nodes dispatched per BFS level",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		ActiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "ws",
			Name:      "active_connections",
			Help:      "Open websocket connections",
		}),
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ws",
			Name:      "events_total",
			Help:      "Events written to clients by type",
		}, []string{"type"}),
	}
}

// RecordAnalysis implements analysis.Recorder.
func (m *Metrics) RecordAnalysis(outcome string, attempts int, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisTotal.WithLabelValues(outcome).Inc()
	m.AnalysisAttempts.Observe(float64(attempts))
	m.AnalysisDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordSession implements explorer.Recorder.
func (m *Metrics) RecordSession(status string, s explorer.Summary) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(status).Inc()
	m.SessionNodes.Observe(float64(s.Nodes))
	m.SessionDuration.Observe(s.Duration.Seconds())
}

// RecordLevel implements explorer.Recorder.
func (m *Metrics) RecordLevel(dispatched int) {
	if m == nil {
		return
	}
	m.LevelWidth.Observe(float64(dispatched))
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) RecordEvent(t explorer.EventType) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(string(t)).Inc()
}
