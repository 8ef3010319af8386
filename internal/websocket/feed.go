// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package websocket

import (
	"context"

	"github.com/tomtom215/geodex/internal/models"
	"github.com/tomtom215/geodex/internal/notify"
)

// ChangeFeed bridges the in-process change broker to the WebSocket hub:
// every committed collection change the broker publishes is queued for
// broadcast to all connected clients.
type ChangeFeed struct {
	hub     *Hub
	handler *notify.ChangeHandler
}

// NewChangeFeed subscribes the hub to the broker's change stream.
func NewChangeFeed(hub *Hub, broker *notify.Broker) *ChangeFeed {
	feed := &ChangeFeed{hub: hub}
	feed.handler = broker.NewChangeHandler().Handle(feed.forward)
	return feed
}

// Run consumes change events until ctx is canceled or the broker closes.
// It is designed to run under suture supervision alongside the hub.
func (f *ChangeFeed) Run(ctx context.Context) error {
	return f.handler.Run(ctx)
}

// forward hands one event to the hub. BroadcastChange never blocks, so the
// feed always acks and the broker's queue cannot back up behind a slow hub.
func (f *ChangeFeed) forward(_ context.Context, event models.ChangeEvent) error {
	f.hub.BroadcastChange(event)
	return nil
}
