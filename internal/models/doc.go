// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package models defines data structures shared across the Geodex application.

This package contains the domain models used throughout the store, sync,
outbox, notification and API layers. It serves as the single source of truth
for data structure definitions and carries no behavior beyond copying and
classification helpers.

Key Components:

  - CollectedItem: one user's claim on one collectible item (notes, media
    references, sync lifecycle state)
  - SyncState: the per-item synchronization lifecycle
    (pending_create -> synced, synced -> pending_update -> synced)
  - MergeResult: counters describing one reconciliation pass
  - ChangeEvent: notification emitted after every committed local mutation
    and after each reconciliation, consumed by in-process subscribers and
    the WebSocket change feed

Identity:

CollectedItem identity is the composite key (UserID, ItemID); exactly one
record exists per pair in the local store at any time. CollectedAt is set at
creation and never mutated afterwards. LocalMediaRefs and RemoteMediaRefs are
index-aligned: RemoteMediaRefs[i] is the uploaded counterpart of
LocalMediaRefs[i] for every i < len(RemoteMediaRefs); the remote list may be
shorter while uploads are outstanding.

Thread Safety:

Models are plain data. Callers that share records across goroutines must
either treat them as immutable or copy them with Clone; the store never hands
out its internal pointers.

JSON Marshaling:

All models carry snake_case struct tags and marshal with goccy/go-json.
time.Time fields use RFC3339.
*/
package models
