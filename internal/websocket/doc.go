// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package websocket pushes committed collection changes to connected UI clients.

This package implements the live change feed: every mutation the collection
service commits (and every reconciliation pass) is broadcast as a typed
message to all connected frontend clients. It uses the gorilla/websocket
library with a hub-client architecture.

Key Components:

  - Hub: central broker that manages client connections and broadcasts
  - Client: one WebSocket connection with read/write goroutines
  - ChangeFeed: bridge consuming the in-process change broker into the hub

Architecture:

	change broker ──▶ ChangeFeed ──▶ Hub ──▶ Client1..N

Each client has two goroutines:
  - readPump: reads from the WebSocket, answers application-level pings
  - writePump: writes hub messages, sends protocol-level keepalive pings

Message Types:

  - change: one committed collection change (models.ChangeEvent payload)
  - ping / pong: application-level keepalive for proxied browser clients

A change message looks like:

	{
	  "type": "change",
	  "data": {
	    "type": "collected",
	    "user_id": "user-1",
	    "item_id": "item-42",
	    "item": { ... },
	    "timestamp": "2026-08-25T10:00:00Z"
	  }
	}

Usage:

	hub := websocket.NewHub()
	feed := websocket.NewChangeFeed(hub, broker)
	// run both under supervision:
	go hub.RunWithContext(ctx)
	go feed.Run(ctx)

	// HTTP upgrade endpoint (see internal/api):
	//   GET /api/v1/ws

Delivery Semantics:

Broadcasts are best-effort: a client whose send buffer is full is dropped
rather than allowed to stall the hub, and a full hub queue drops the event
with a metric. Clients are expected to re-read the collection via the REST
API after reconnecting; the feed is a notification surface, not a system of
record.

Connection Lifecycle:

 1. Client connects via HTTP upgrade
 2. Hub registers client
 3. Client starts read/write goroutines
 4. Hub broadcasts change messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and cleans up

Thread Safety:

The hub guards its client map with a mutex; channels coordinate goroutine
communication; each client owns its two pump goroutines. Dead connections
are detected by the 60s pong timeout.

See Also:

  - github.com/gorilla/websocket: underlying WebSocket library
  - internal/notify: the change broker the feed consumes
  - internal/api: the /ws upgrade handler
*/
package websocket
