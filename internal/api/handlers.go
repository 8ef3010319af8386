// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/geodex/internal/collection"
	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/gateway"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/outbox"
	"github.com/tomtom215/geodex/internal/store"
	ws "github.com/tomtom215/geodex/internal/websocket"
)

// serverVersion is reported by the health endpoint.
const serverVersion = "1.0.0"

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket endpoint (this file)
//   - handlers_helpers.go: Shared helper functions
//   - handlers_collection.go: Session and collected-item endpoints
//   - handlers_spatial.go: Geohash encode and viewport bounds endpoints
//   - handlers_health.go: Health, readiness, and outbox stats endpoints
type Handler struct {
	service   *collection.Service
	store     *store.Store
	queue     outbox.Queue
	remote    gateway.Remote                // nil when no remote is configured
	breaker   *gateway.CircuitBreakerClient // nil unless the remote is breaker-wrapped
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a new API handler with all required dependencies.
//
// Dependencies:
//   - service: Collection service for all item mutations and reads
//   - st: Local store, consulted directly for health checks
//   - queue: Outbox queue for delivery statistics
//   - remote: Remote gateway, nil for offline-only deployments
//   - breaker: Circuit-breaker wrapper around the remote, nil when offline
//   - wsHub: WebSocket hub for the change feed
//   - cfg: Application configuration
//
// Example:
//
//	handler := api.NewHandler(svc, st, queue, remote, breaker, hub, cfg)
//	router := api.NewRouter(handler, cfg)
//	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
func NewHandler(service *collection.Service, st *store.Store, queue outbox.Queue, remote gateway.Remote, breaker *gateway.CircuitBreakerClient, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		service:   service,
		store:     st,
		queue:     queue,
		remote:    remote,
		breaker:   breaker,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with proper origin checking and
// a handshake timeout for protection against slow client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// If no origin header, REJECT - legitimate browser WebSockets ALWAYS include Origin.
	// Only non-browser clients (curl, scripts, mobile apps) omit the Origin header,
	// and allowing empty Origin bypasses CORS entirely.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.config == nil {
		return true
	}

	// Check against allowed origins from config
	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	// Origin not in allowed list - sanitize origin to prevent log injection
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and subscribes it to the change feed.
// Every committed collection mutation is broadcast to all connected clients.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

// uptime reports seconds since the handler was constructed.
func (h *Handler) uptime() float64 {
	return time.Since(h.startTime).Seconds()
}
