// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
)

// ContextRunner interface matches *websocket.ChangeFeed's Run method.
//
// This interface allows the ChangeFeedService to work with the feed
// without importing the websocket package, avoiding circular dependencies.
type ContextRunner interface {
	Run(ctx context.Context) error
}

// ChangeFeedService wraps the broker-to-hub change feed as a supervised
// service.
//
// The feed consumes committed collection changes from the notify broker
// and queues them for WebSocket broadcast. Its Run method already follows
// the suture.Service pattern, so this wrapper delegates and names it.
//
// The feed runs in the messaging layer next to the hub: if either crashes,
// both restart together without touching the API layer. Clients miss events
// during the gap, but the store remains the source of truth, so the next
// fetch corrects anything unseen.
//
// Example usage:
//
//	feed := websocket.NewChangeFeed(hub, broker)
//	svc := services.NewChangeFeedService(feed)
//	tree.AddMessagingService(svc)
type ChangeFeedService struct {
	feed ContextRunner
	name string
}

// NewChangeFeedService creates a new change feed service wrapper.
func NewChangeFeedService(feed ContextRunner) *ChangeFeedService {
	return &ChangeFeedService{
		feed: feed,
		name: "change-feed",
	}
}

// Serve implements suture.Service. It delegates to feed.Run, which consumes
// broker messages until the context is canceled or the broker closes.
func (c *ChangeFeedService) Serve(ctx context.Context) error {
	return c.feed.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (c *ChangeFeedService) String() string {
	return c.name
}
