// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package services provides suture.Service wrappers for Geodex components.

This package adapts existing application components to the suture v4 supervision
model, translating various lifecycle patterns (Start/Stop, Run, ListenAndServe)
into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub with context support
  - Handles client connection cleanup on shutdown

Change Feed (ChangeFeedService):
  - Wraps websocket.ChangeFeed, the broker-to-hub bridge
  - Consumes committed change events and queues them for broadcast

Outbox Worker (OutboxWorkerService):
  - Wraps outbox.Worker with Start/Stop lifecycle
  - Drains pending mutations to the remote with retry and backoff
  - Durable entries survive worker restarts

Reconcile Loop (ReconcileLoopService):
  - Periodically reconciles every known user against the remote
  - Per-user failures are logged and skipped, never crash the loop
  - Only registered when a remote is configured and an interval is set

Store GC (StoreGCService):
  - Runs BadgerDB value-log garbage collection on a schedule
  - A failed pass is retried on the next tick

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/geodex/internal/supervisor"
	    "github.com/tomtom215/geodex/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, hub *websocket.Hub, worker *outbox.Worker) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    // HTTP server with 15s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 15*time.Second)
	    tree.AddAPIService(httpSvc)

	    // WebSocket hub
	    wsSvc := services.NewWebSocketHubService(hub)
	    tree.AddMessagingService(wsSvc)

	    // Outbox retry worker
	    workerSvc := services.NewOutboxWorkerService(worker)
	    tree.AddDataService(workerSvc)

	    // Start supervision
	    tree.Serve(ctx)
	}

# Lifecycle Patterns

The package handles three common lifecycle patterns:

Start/Stop Pattern (outbox worker):

	type StartStopWorker interface {
	    Start(ctx context.Context) error
	    Stop()
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.worker.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    s.worker.Stop()
	    return ctx.Err()
	}

Context-Run Pattern (hub, change feed, loops):

	type ContextRunner interface {
	    Run(ctx context.Context) error // Blocks until ctx is canceled
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    return s.component.Run(ctx)
	}

ListenAndServe Pattern (HTTP server):

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

A deliberate consequence for Geodex: services whose work involves the
remote (outbox worker, reconcile loop) treat remote failures as data to
log, not errors to return. An unreachable remote is the system's normal
offline state and must not trigger supervisor backoff.

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Testing

Services can be tested with mock components:

	type MockServer struct {
	    started  bool
	    shutdown bool
	}

	func (m *MockServer) ListenAndServe() error {
	    m.started = true
	    <-time.After(time.Hour) // Block until shutdown
	    return nil
	}

	func (m *MockServer) Shutdown(ctx context.Context) error {
	    m.shutdown = true
	    return nil
	}

# Thread Safety

All service wrappers are safe for concurrent use:
  - State is protected by mutexes where needed
  - Context cancellation is handled atomically
  - Multiple Serve calls are not supported (undefined behavior)

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/websocket: WebSocket hub and change feed
  - internal/outbox: Outbox queue and retry worker
*/
package services
