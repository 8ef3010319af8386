// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/middleware"
)

// Router wires handlers and middleware into the HTTP routing tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for the given handler. A nil config falls back
// to the secure middleware defaults, which is convenient in tests.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	var cm *ChiMiddleware
	if cfg != nil {
		cm = NewChiMiddlewareFromSecurity(cfg.Security)
	} else {
		cm = NewChiMiddleware(nil)
	}

	return &Router{
		handler:       handler,
		chiMiddleware: cm,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
// This allows the internal/middleware package to work with Chi's r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes using the Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	r.Use(chiMiddleware(middleware.RequestID)) // X-Request-ID plus logging context
	r.Use(E2EDebugLogging())           // E2E diagnostic logging (enabled via E2E_DEBUG=true)
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(chiMiddleware(middleware.Compression))

	// ========================
	// Health Endpoints
	// ========================
	// Permissive rate limiting so monitoring tools can poll frequently.
	// Excluded from request metrics to keep probe noise out of the series.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// ========================
	// Core API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Session lifecycle: reconciliation is remote-bound work, so it
		// shares the moderate write budget.
		r.With(router.chiMiddleware.RateLimitWrite()).Post("/session/start", router.handler.StartSession)

		// Collection reads
		r.Get("/users/{userID}/items", router.handler.Items)
		r.Get("/users/{userID}/items/{itemID}", router.handler.Item)

		// Collection writes: moderate rate limiting on top of the default
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Post("/users/{userID}/items/{itemID}/collect", router.handler.Collect)
			r.Put("/users/{userID}/items/{itemID}/notes", router.handler.UpdateNotes)
			r.Post("/users/{userID}/items/{itemID}/media", router.handler.AddMedia)
			r.Delete("/users/{userID}/items/{itemID}/media/{localRef}", router.handler.RemoveMedia)
			r.Post("/users/{userID}/reset", router.handler.ResetAll)
		})

		// Spatial utilities
		r.Get("/spatial/bounds", router.handler.SpatialBounds)
		r.Get("/spatial/encode", router.handler.SpatialEncode)

		// Outbox visibility
		r.Get("/outbox/stats", router.handler.OutboxStats)

		// WebSocket change feed
		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}
