// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package middleware provides the HTTP middleware shared by every geodex
endpoint: gzip response compression, request ID tracking, and Prometheus
instrumentation.

The middlewares use the plain http.HandlerFunc wrapping style; the api
package adapts them into the chi router's func(http.Handler) http.Handler
chain.

Request IDs honor an upstream X-Request-ID header so a sync session can be
traced through a proxy, and populate the logging context so logging.Ctx
emits request_id and correlation_id on every line:

	func handler(w http.ResponseWriter, r *http.Request) {
	    logging.Ctx(r.Context()).Info().Msg("reconciling snapshot")
	    // or: middleware.GetRequestID(r.Context())
	}

PrometheusMetrics labels requests with the matched chi route pattern
("/api/v1/users/{userID}/items"), never the concrete path, so user and item
IDs stay out of metric series.

Compression pools gzip writers, skips WebSocket upgrades, and sets
Vary: Accept-Encoding for caches.
*/
package middleware
