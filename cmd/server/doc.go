// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package main is the entry point for the Geodex server application.

Geodex is a self-hosted, offline-first collection tracker: players collect
geotagged items in the field, every write lands in a local BadgerDB store
first, and an outbox worker pushes the changes to an optional remote service
whenever it is reachable. Geohash-based spatial indexing answers "what did I
collect around here" without a network round trip.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("geodex")
	├── DataSupervisor ("data-layer")
	│   ├── Outbox Worker (remote push retry loop, if remote configured)
	│   └── Store GC (BadgerDB value-log compaction)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (real-time change broadcast)
	│   ├── Change Feed (broker-to-hub bridge)
	│   └── Reconcile Loop (periodic merge, if remote configured)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (REST API)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Local Store: BadgerDB snapshot load (collections servable immediately)
 4. Outbox: durable mutation queue sharing the store's BadgerDB
 5. Remote Gateway: HTTP client with circuit breaker (optional)
 6. Notify Broker: Watermill in-process change events
 7. WebSocket Hub + Change Feed: real-time updates
 8. Collection Service + Reconciler: the write path and the merge path
 9. Supervisor Tree: Suture v4 process supervision
 10. HTTP Server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_HOST=0.0.0.0           # Bind address
	HTTP_PORT=8472              # HTTP server port
	LOG_LEVEL=info              # trace, debug, info, warn, error
	LOG_FORMAT=json             # json or console

	# Local store
	STORE_PATH=/data/geodex/store
	STORE_IN_MEMORY=false       # true for ephemeral stores (tests, demos)
	STORE_GC_INTERVAL=10m

	# Remote sync (optional)
	REMOTE_ENABLED=false        # Geodex is fully functional without it
	REMOTE_URL=https://collect.example.com
	REMOTE_API_KEY=<key>
	SYNC_INTERVAL=0             # Periodic reconcile cadence, 0 disables

	# Outbox retry policy
	OUTBOX_MAX_RETRIES=10
	OUTBOX_RETRY_BASE_DELAY=2s
	OUTBOX_RETRY_MAX_DELAY=5m

The full variable list lives in the config package documentation.

# Offline-First Contract

Every collect, note edit, and media change commits to the local store before
anything else happens. The HTTP response reflects the local commit only;
remote push is asynchronous via the outbox and never blocks or fails a
request. With REMOTE_ENABLED=false the outbox simply accumulates, ready for
the day a remote is configured.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:
  - Stops accepting new connections
  - Waits for in-flight requests to complete (SHUTDOWN_TIMEOUT, default 15s)
  - Stops the outbox worker after its in-flight batch finishes
  - Persists the store snapshot and closes BadgerDB

# Example Usage

Offline only (default):

	export STORE_PATH=/data/geodex/store
	./geodex

With a remote collection service:

	export REMOTE_ENABLED=true
	export REMOTE_URL=https://collect.example.com
	export REMOTE_API_KEY=your-api-key
	export SYNC_INTERVAL=15m
	./geodex

Docker:

	docker run -d \
	  -v geodex-data:/data/geodex \
	  -p 8472:8472 \
	  ghcr.io/tomtom215/geodex
*/
package main
