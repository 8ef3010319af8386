// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Local store (Badger) operation performance
  - Outbox depth, replay attempts, and retry outcomes
  - Remote gateway calls and circuit breaker state
  - Reconcile pass durations and merge outcomes
  - Change event publishing
  - WebSocket connection counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8472/metrics

# Available Metrics

Store Metrics:
  - store_op_duration_seconds: Store operation latency (histogram)
    Labels: operation (load_all, save_all, collect, update_notes, ...)
  - store_op_errors_total: Failed store operations (counter)
    Labels: operation, error_type
  - store_records: Records currently held in the store (gauge)
  - store_corrupt_recoveries_total: Corrupt snapshot recoveries (counter)

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Outbox Metrics:
  - outbox_pending_entries: Pending entries awaiting replay (gauge)
  - outbox_enqueued_total: Entries enqueued (counter)
    Labels: operation
  - outbox_confirmed_total: Entries confirmed after replay (counter)
  - outbox_retry_attempts_total / _successes_total / _failures_total: Replay outcomes
  - outbox_oldest_entry_age_seconds: Age of oldest pending entry (gauge)

Remote Gateway Metrics:
  - remote_request_duration_seconds: Remote call latency (histogram)
    Labels: operation
  - remote_request_errors_total: Failed remote calls (counter)
    Labels: operation, error_type (timeout, rate_limited, server, network, other)

Reconcile Metrics:
  - reconcile_duration_seconds: Reconcile pass duration (histogram)
  - reconcile_records_total: Records handled per outcome (counter)
    Labels: outcome (fetched, overwritten, preserved_pending, inserted, dropped)
  - reconcile_errors_total: Failed reconcile passes (counter)
    Labels: error_type
  - reconcile_last_success_timestamp: Unix timestamp of last success (gauge)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests through the breaker (counter)
    Labels: name, result (success, failure, rejected)
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Change Event Metrics:
  - change_events_published_total: Events published to the broker (counter)
    Labels: type
  - change_event_subscribers: Current subscriber count (gauge)

Spatial Metrics:
  - spatial_bounds_queries_total: Bounds computations (counter)
    Labels: result (prefix, fallback)
  - spatial_query_duration_seconds: Bounds computation latency (histogram)

WebSocket Metrics:
  - websocket_connections: Active connections (gauge)
  - websocket_messages_sent_total: Messages sent (counter)
  - websocket_messages_dropped_total: Messages dropped to slow clients (counter)
  - websocket_errors_total: Errors (counter)
    Labels: error_type

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/tomtom215/geodex/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    // Register metrics endpoint
	    http.Handle("/metrics", promhttp.Handler())

	    // Record metrics
	    metrics.RecordAPIRequest("GET", "/api/v1/users/{userID}/items", "200", 23*time.Millisecond)
	    metrics.RecordStoreOp("save_all", 5*time.Millisecond, nil)
	    metrics.RecordReconcile(1500*time.Millisecond, nil)
	}

Recording store metrics around a Badger transaction:

	func (s *Store) SaveAll(ctx context.Context) error {
	    start := time.Now()
	    err := s.persist(ctx)
	    metrics.RecordStoreOp("save_all", time.Since(start), err)
	    return err
	}

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'geodex'
	    static_configs:
	      - targets: ['localhost:8472']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

Example PromQL queries:

	# HTTP request rate
	rate(api_requests_total[5m])

	# HTTP p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# Outbox backlog trend
	outbox_pending_entries

	# Replay success ratio
	rate(outbox_retry_successes_total[5m]) / rate(outbox_retry_attempts_total[5m])

	# Reconcile drop rate
	rate(reconcile_records_total{outcome="dropped"}[15m])

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels use chi route patterns, not raw paths
  - Error types are categorized into fixed constants
  - User and item identifiers are never used as labels

# Alerting Rules

Example Prometheus alerting rules:

	groups:
	  - name: geodex
	    rules:
	      - alert: OutboxBacklog
	        expr: outbox_pending_entries > 1000
	        for: 15m
	        annotations:
	          summary: "Outbox backlog: {{ $value }} pending entries"

	      - alert: StaleReconcile
	        expr: time() - reconcile_last_success_timestamp > 3600
	        for: 5m
	        annotations:
	          summary: "No successful reconcile in the last hour"

	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 2m
	        annotations:
	          summary: "Circuit breaker open for {{ $labels.name }}"

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - internal/store: Store operation metrics recording
  - internal/outbox: Outbox metrics recording
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
