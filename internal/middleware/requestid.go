// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package middleware

import (
	"context"
	"net/http"

	"github.com/tomtom215/geodex/internal/logging"
)

// maxRequestIDLen caps inbound X-Request-ID values. Anything longer is
// replaced with a generated ID so log lines stay bounded.
const maxRequestIDLen = 128

// RequestID assigns each request an ID for log correlation. An X-Request-ID
// supplied by an upstream proxy is honored so a sync session can be traced
// across hops; otherwise a fresh UUID is generated. The ID is echoed on the
// response and stored in the logging context together with a new
// correlation ID, so logging.Ctx picks both up in handlers.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next(w, r.WithContext(ctx))
	}
}

// GetRequestID returns the request ID stashed by RequestID, or "" when the
// context never passed through the middleware.
func GetRequestID(ctx context.Context) string {
	return logging.RequestIDFromContext(ctx)
}
