// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package api provides the HTTP REST API layer for Geodex.

This package exposes the collection service, the spatial utilities, and the
operational surface (health, outbox stats, metrics, WebSocket change feed)
over a Chi router. Every mutation goes through the collection service, which
commits locally first; the API never blocks a write on remote connectivity.

Key Components:

  - Router: HTTP route configuration and middleware stack integration
  - Handler: Request handlers for all endpoints
  - Response formatting: Standardized JSON envelope with request metadata
  - Error handling: Consistent error responses with appropriate HTTP status codes
  - Rate limiting: Per-class IP rate limits via go-chi/httprate
  - CORS: Cross-Origin Resource Sharing via go-chi/cors

API Categories:

1. Health Endpoints (/api/v1/health/):
  - Liveness (health/live) and readiness (health/ready) probes
  - Full health report: store state, remote reachability, circuit state,
    outbox backlog, connected change-feed listeners

2. Session and Collection Endpoints (/api/v1/):
  - POST /session/start reconciles a user's local snapshot with the remote
  - GET/POST/PUT/DELETE under /users/{userID}/items manage collected items,
    notes, and media references

3. Spatial Endpoints (/api/v1/spatial/):
  - /encode turns a coordinate into a geohash at a requested precision
  - /bounds computes the geohash range covering a rectangular viewport

4. Outbox Endpoint (/api/v1/outbox/stats):
  - Pending/confirmed counts and delivery counters for the mutation outbox

5. WebSocket Endpoint (/api/v1/ws):
  - Real-time change feed; every committed mutation is broadcast

Usage Example:

	import (
	    "github.com/tomtom215/geodex/internal/api"
	    "github.com/tomtom215/geodex/internal/collection"
	    "github.com/tomtom215/geodex/internal/store"
	)

	// Create handler and router
	handler := api.NewHandler(svc, st, queue, remote, breaker, hub, cfg)
	router := api.NewRouter(handler, cfg)

	// Setup routes and start server
	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())

Offline Semantics:

Collection mutations return the committed local state immediately. Remote
push failures are absorbed by the outbox and retried in the background, so
clients observe success whenever the local store accepted the write. Only
POST /session/start surfaces remote errors (502), because reconciliation is
by definition a remote operation.

Thread Safety:

All handlers are thread-safe and designed for concurrent request handling.
Shared resources (store, outbox, WebSocket hub) are protected by their
respective synchronization primitives.

See Also:

  - internal/collection: Local-first mutation and reconciliation service
  - internal/store: Persistent per-user item index
  - internal/models: Request/response data structures
  - internal/middleware: HTTP middleware components
  - internal/validation: Request validation helpers
*/
package api
