// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package models

// HealthStatus represents the health check response.
//
// Mode is "connected" when a remote gateway is configured and "offline"
// otherwise; offline is a fully supported deployment, not a degraded one,
// so Status stays "healthy" either way as long as the local store is open.
type HealthStatus struct {
	Status         string  `json:"status"`
	Mode           string  `json:"mode"` // "offline" (no remote) or "connected"
	Version        string  `json:"version"`
	StoreOpen      bool    `json:"store_open"`
	RemoteHealthy  bool    `json:"remote_healthy"`
	CircuitState   string  `json:"circuit_state,omitempty"`
	OutboxPending  int64   `json:"outbox_pending"`
	EventListeners int     `json:"event_listeners"`
	Uptime         float64 `json:"uptime_seconds"`
}

// ItemsResponse wraps a user's collection snapshot.
type ItemsResponse struct {
	UserID string          `json:"user_id"`
	Items  []CollectedItem `json:"items"`
	Count  int             `json:"count"`
}

// StartSessionResponse reports the outcome of a session-start reconcile.
// Reconciled is false when no remote is configured; the merge counters are
// all zero in that case.
type StartSessionResponse struct {
	UserID     string      `json:"user_id"`
	Reconciled bool        `json:"reconciled"`
	Merge      MergeResult `json:"merge"`
}

// EncodeResponse is the payload of the spatial encode endpoint. CellSizeMeters
// is the approximate smaller ground dimension of one cell at the precision.
type EncodeResponse struct {
	Geohash        string  `json:"geohash"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Precision      int     `json:"precision"`
	CellSizeMeters float64 `json:"cell_size_meters"`
}

// BoundsResponse is the payload of the spatial bounds endpoint. The range is
// half-open: a hash matches when MinHash <= hash < MaxHash. Matches near cell
// edges include false positives; clients post-filter by true distance.
type BoundsResponse struct {
	MinHash   string `json:"min_hash"`
	MaxHash   string `json:"max_hash"`
	Precision int    `json:"precision"`
}
