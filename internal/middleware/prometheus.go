// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/geodex/internal/metrics"
)

// PrometheusMetrics instruments each request with the shared API metrics:
// an in-flight gauge, a per-endpoint counter, and a latency histogram.
// The endpoint label uses the chi route pattern when one was matched
// ("/api/v1/users/{userID}/items" rather than the concrete path), so user
// and item IDs never become metric series.
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		metrics.RecordAPIRequest(
			r.Method,
			endpointLabel(r),
			strconv.Itoa(rec.status),
			time.Since(start),
		)
	}
}

// endpointLabel prefers the matched route pattern over the raw path. The
// pattern is only populated after the handler ran, which is why metrics are
// recorded on the way out.
func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// statusRecorder captures the status code written by the handler. A handler
// that writes a body without calling WriteHeader reports the implicit 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
