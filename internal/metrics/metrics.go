// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

// Package metrics provides Prometheus instrumentation for sync tasks.
//
// All metrics are registered on the default registry via promauto; expose
// them with promhttp.Handler() from the embedding application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pass Metrics
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notisync_pass_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"task"},
	)

	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_passes_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"task", "result"}, // result: "success", "error"
	)

	PassLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notisync_pass_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful pass",
		},
		[]string{"task"},
	)

	// Reconciliation Metrics
	ObjectsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_objects_created_total",
			Help: "Total number of mirror objects created",
		},
		[]string{"task", "side"}, // side: "primary", "other"
	)

	ObjectsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_objects_deleted_total",
			Help: "Total number of objects deleted by deletion propagation",
		},
		[]string{"task", "side"},
	)

	AttributesUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_attributes_updated_total",
			Help: "Total number of attribute values pushed to one side",
		},
		[]string{"task", "side"},
	)

	ConflictsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_conflicts_resolved_total",
			Help: "Total number of attribute conflicts resolved",
		},
		[]string{"task", "winner"}, // winner: "primary", "other"
	)

	PairedObjects = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notisync_paired_objects",
			Help: "Number of object pairings in the task's current state",
		},
		[]string{"task"},
	)

	// Circuit Breaker Metrics
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notisync_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notisync_breaker_requests_total",
			Help: "Adapter calls routed through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)
)

// ObservePass records the outcome of one reconciliation pass.
func ObservePass(task string, duration time.Duration, err error) {
	PassDuration.WithLabelValues(task).Observe(duration.Seconds())
	if err != nil {
		PassesTotal.WithLabelValues(task, "error").Inc()
		return
	}
	PassesTotal.WithLabelValues(task, "success").Inc()
	PassLastSuccess.WithLabelValues(task).SetToCurrentTime()
}
