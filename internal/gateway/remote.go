// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package gateway provides the client for the remote collection sync
// service. The rest of the application talks to the remote exclusively
// through the Remote interface so that the HTTP client, the circuit
// breaker wrapper, and test fakes are interchangeable.
package gateway

import (
	"context"

	"github.com/tomtom215/geodex/internal/models"
)

// Remote defines the collection sync service operations.
//
// All methods accept a context for cancellation and timeout support and
// return an error on HTTP failure, non-2xx status, or JSON decode failure.
// Implementations must be safe for concurrent use: the outbox worker, the
// reconciler, and media deletion all call into the same instance.
type Remote interface {
	// Ping verifies connectivity to the sync service.
	Ping(ctx context.Context) error

	// FetchCollectedItems returns the remote's view of one user's
	// collection. A user unknown to the remote yields an empty slice,
	// not an error.
	FetchCollectedItems(ctx context.Context, userID string) ([]models.CollectedItem, error)

	// SaveCollectedItem upserts a full record on the remote.
	SaveCollectedItem(ctx context.Context, userID string, item models.CollectedItem) error

	// UpdateNotes replaces the notes of an existing remote record.
	UpdateNotes(ctx context.Context, userID, itemID, notes string) error

	// UpdateMedia replaces both media reference lists of an existing
	// remote record.
	UpdateMedia(ctx context.Context, userID, itemID string, localRefs, remoteRefs []string) error

	// DeleteAllCollectedItems removes every record the remote holds for
	// the user.
	DeleteAllCollectedItems(ctx context.Context, userID string) error

	// DeleteMediaAsset removes one uploaded media asset by its remote
	// reference. The asset is addressed directly, not through an item,
	// because the owning record may already be gone locally.
	DeleteMediaAsset(ctx context.Context, remoteRef string) error
}
