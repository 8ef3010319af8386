// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Local store performance (Badger)
// - API endpoint latency and throughput
// - Outbox depth and retry outcomes
// - Remote gateway calls and circuit breaker state
// - Reconcile passes
// - WebSocket connections

var (
	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Duration of local store operations in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_errors_total",
			Help: "Total number of local store operation errors",
		},
		[]string{"operation", "error_type"},
	)

	StoreRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_records",
			Help: "Current number of collected item records held in the store",
		},
	)

	StoreSnapshotBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_snapshot_bytes",
			Help:    "Size of persisted store snapshots in bytes",
			Buckets: []float64{1024, 10240, 102400, 1048576, 10485760, 104857600},
		},
	)

	StoreCorruptRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_corrupt_recoveries_total",
			Help: "Total number of times the store recovered from a corrupt snapshot",
		},
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_gc_runs_total",
			Help: "Total number of Badger value-log GC runs",
		},
		[]string{"result"}, // "reclaimed", "noop", "error"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Reconcile Metrics
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Duration of reconcile passes in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120}, // Remote fetch dominates
		},
	)

	ReconcileRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_records_total",
			Help: "Total number of records handled during reconcile passes",
		},
		[]string{"outcome"}, // "fetched", "overwritten", "preserved_pending", "inserted", "dropped"
	)

	ReconcileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_errors_total",
			Help: "Total number of reconcile errors",
		},
		[]string{"error_type"}, // "remote", "store", "timeout", "other"
	)

	ReconcileLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_last_success_timestamp",
			Help: "Unix timestamp of last successful reconcile pass",
		},
	)

	// Outbox Metrics
	OutboxPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Current number of pending entries in the outbox",
		},
	)

	OutboxEntriesByOp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbox_entries_by_op",
			Help: "Current number of pending outbox entries by operation",
		},
		[]string{"operation"}, // save_item, update_notes, update_media, delete_all, delete_media_asset
	)

	OutboxEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_enqueued_total",
			Help: "Total number of entries enqueued to the outbox",
		},
		[]string{"operation"},
	)

	OutboxConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_confirmed_total",
			Help: "Total number of outbox entries confirmed (successfully replayed)",
		},
	)

	OutboxExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_expired_total",
			Help: "Total number of outbox entries expired before replay",
		},
	)

	OutboxExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_exhausted_total",
			Help: "Total number of outbox entries that ran out of retry attempts",
		},
	)

	OutboxRetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retry_attempts_total",
			Help: "Total number of outbox replay attempts",
		},
	)

	OutboxRetrySuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retry_successes_total",
			Help: "Total number of successful outbox replay attempts",
		},
	)

	OutboxRetryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_retry_failures_total",
			Help: "Total number of failed outbox replay attempts",
		},
	)

	OutboxFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_flush_duration_seconds",
			Help:    "Duration of outbox flush passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_batch_size",
			Help:    "Number of entries replayed per flush pass",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	OutboxOldestEntryAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_oldest_entry_age_seconds",
			Help: "Age of the oldest pending outbox entry in seconds",
		},
	)

	// Remote Gateway Metrics
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_request_duration_seconds",
			Help:    "Duration of remote gateway requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RemoteRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_request_errors_total",
			Help: "Total number of remote gateway request errors",
		},
		[]string{"operation", "error_type"}, // "timeout", "rate_limited", "server", "network", "other"
	)

	RemoteRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_rate_limit_waits_total",
			Help: "Total number of requests delayed by the client-side rate limiter",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Change Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_events_published_total",
			Help: "Total number of change events published to the broker",
		},
		[]string{"type"}, // collected, notes_updated, media_added, media_removed, reset, reconciled
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_event_subscribers",
			Help: "Current number of change event subscribers",
		},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "change_event_publish_errors_total",
			Help: "Total number of change event publish failures",
		},
	)

	// Spatial Query Metrics
	SpatialBoundsQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spatial_bounds_queries_total",
			Help: "Total number of spatial bounds computations",
		},
		[]string{"result"}, // "prefix", "fallback"
	)

	SpatialQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spatial_query_duration_seconds",
			Help:    "Duration of spatial bounds computations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped due to slow clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreOp records a local store operation metric
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreOpErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordReconcile records a reconcile pass metric
func RecordReconcile(duration time.Duration, err error) {
	ReconcileDuration.Observe(duration.Seconds())
	if err != nil {
		errorType := "other"
		errorMsg := err.Error()
		switch {
		case strings.Contains(errorMsg, "deadline exceeded"), strings.Contains(errorMsg, "timeout"):
			errorType = "timeout"
		case strings.Contains(errorMsg, "remote"), strings.Contains(errorMsg, "circuit"):
			errorType = "remote"
		case strings.Contains(errorMsg, "store"), strings.Contains(errorMsg, "badger"):
			errorType = "store"
		}
		ReconcileErrors.WithLabelValues(errorType).Inc()
	} else {
		// Update last success timestamp
		ReconcileLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// AddReconcileOutcomes records the per-outcome record counts of a merge
func AddReconcileOutcomes(fetched, overwritten, preservedPending, inserted, dropped int) {
	ReconcileRecords.WithLabelValues("fetched").Add(float64(fetched))
	ReconcileRecords.WithLabelValues("overwritten").Add(float64(overwritten))
	ReconcileRecords.WithLabelValues("preserved_pending").Add(float64(preservedPending))
	ReconcileRecords.WithLabelValues("inserted").Add(float64(inserted))
	ReconcileRecords.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordOutboxEnqueue records an entry being enqueued to the outbox
func RecordOutboxEnqueue(operation string) {
	OutboxEnqueued.WithLabelValues(operation).Inc()
}

// RecordOutboxConfirm records an entry being confirmed after successful replay
func RecordOutboxConfirm() {
	OutboxConfirmed.Inc()
}

// RecordOutboxExpiry records an entry expiring before replay
func RecordOutboxExpiry() {
	OutboxExpired.Inc()
}

// RecordOutboxExhausted records an entry running out of retry attempts
func RecordOutboxExhausted() {
	OutboxExhausted.Inc()
}

// RecordOutboxRetry records a replay attempt and its outcome
func RecordOutboxRetry(success bool) {
	OutboxRetryAttempts.Inc()
	if success {
		OutboxRetrySuccesses.Inc()
	} else {
		OutboxRetryFailures.Inc()
	}
}

// RecordOutboxFlush records a flush pass over pending entries
func RecordOutboxFlush(duration time.Duration, batchSize int) {
	OutboxFlushDuration.Observe(duration.Seconds())
	OutboxBatchSize.Observe(float64(batchSize))
}

// UpdateOutboxGauges updates outbox gauge metrics with current stats
func UpdateOutboxGauges(pending int64, oldestEntryAge float64, entriesByOp map[string]int64) {
	OutboxPendingEntries.Set(float64(pending))
	OutboxOldestEntryAge.Set(oldestEntryAge)
	for operation, count := range entriesByOp {
		OutboxEntriesByOp.WithLabelValues(operation).Set(float64(count))
	}
}

// RecordRemoteRequest records a remote gateway request metric
func RecordRemoteRequest(operation string, duration time.Duration, err error) {
	RemoteRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := "other"
		errorMsg := err.Error()
		switch {
		case strings.Contains(errorMsg, "deadline exceeded"), strings.Contains(errorMsg, "timeout"):
			errorType = "timeout"
		case strings.Contains(errorMsg, "429"), strings.Contains(errorMsg, "rate limit"):
			errorType = "rate_limited"
		case strings.Contains(errorMsg, "status 5"):
			errorType = "server"
		case strings.Contains(errorMsg, "connection"), strings.Contains(errorMsg, "dial"):
			errorType = "network"
		}
		RemoteRequestErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordRemoteRateLimitWait records a request delayed by the client-side limiter
func RecordRemoteRateLimitWait() {
	RemoteRateLimitWaits.Inc()
}

// RecordEventPublished records a change event publish
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventPublishError records a change event publish failure
func RecordEventPublishError() {
	EventPublishErrors.Inc()
}

// SetEventSubscribers sets the current subscriber count
func SetEventSubscribers(count int64) {
	EventSubscribers.Set(float64(count))
}

// RecordSpatialBounds records a spatial bounds computation
func RecordSpatialBounds(fallback bool, duration time.Duration) {
	result := "prefix"
	if fallback {
		result = "fallback"
	}
	SpatialBoundsQueries.WithLabelValues(result).Inc()
	SpatialQueryDuration.Observe(duration.Seconds())
}
