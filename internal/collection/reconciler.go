// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package collection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/geodex/internal/gateway"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
	"github.com/tomtom215/geodex/internal/store"
)

// Reconciler merges the remote's view of one user's collection into the
// local store. The remote is authoritative for every record it returns;
// local records it has never seen survive untouched while they are pending
// and are dropped once synced (a synced record absent from the remote was
// deleted there).
type Reconciler struct {
	store     *store.Store
	remote    gateway.Remote
	publisher Publisher
	timeout   time.Duration

	// mu serializes passes. Reconcile is idempotent, but two interleaved
	// passes for the same user would race each other's ReplaceUser commit.
	mu sync.Mutex
}

// NewReconciler creates a reconciler. timeout bounds one full pass (fetch
// through commit); zero means the caller's context is the only bound.
// publisher may be nil.
func NewReconciler(st *store.Store, remote gateway.Remote, publisher Publisher, timeout time.Duration) *Reconciler {
	return &Reconciler{
		store:     st,
		remote:    remote,
		publisher: publisher,
		timeout:   timeout,
	}
}

// Reconcile runs one merge pass for the user and commits the union in a
// single store write. A fetch failure returns an error with the store
// byte-for-byte unchanged. On success one reconciled event is published,
// whether or not any record moved.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (models.MergeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	remoteItems, err := r.remote.FetchCollectedItems(ctx, userID)
	if err != nil {
		metrics.RecordReconcile(time.Since(start), err)
		return models.MergeResult{}, fmt.Errorf("reconcile fetch for user %q: %w", userID, err)
	}

	result, merged := r.merge(userID, remoteItems)

	if err := r.store.ReplaceUser(ctx, userID, merged); err != nil {
		// The merged set is already live in memory; only the snapshot
		// write failed. Surface it so session start can report degraded
		// durability.
		metrics.RecordReconcile(time.Since(start), err)
		return result, fmt.Errorf("reconcile commit for user %q: %w", userID, err)
	}

	metrics.RecordReconcile(time.Since(start), nil)
	metrics.AddReconcileOutcomes(result.Fetched, result.Overwritten, result.PreservedPending, result.Inserted, result.Dropped)

	logging.Info().
		Str("user_id", userID).
		Int("fetched", result.Fetched).
		Int("overwritten", result.Overwritten).
		Int("preserved_pending", result.PreservedPending).
		Int("inserted", result.Inserted).
		Int("dropped", result.Dropped).
		Dur("duration", time.Since(start)).
		Msg("reconcile complete")

	if r.publisher != nil {
		event := models.ChangeEvent{
			Type:      models.ChangeReconciled,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			logging.Warn().Err(err).
				Str("user_id", userID).
				Msg("reconciled event publish failed")
		}
	}

	return result, nil
}

// merge computes the union of the user's local records and the remote
// snapshot. Remote records are normalized and forced synced on the way in;
// the remote is trusted for content but not for record hygiene.
func (r *Reconciler) merge(userID string, remoteItems []models.CollectedItem) (models.MergeResult, []models.CollectedItem) {
	result := models.MergeResult{Fetched: len(remoteItems)}

	remote := make(map[string]models.CollectedItem, len(remoteItems))
	for i := range remoteItems {
		rec := remoteItems[i].Clone()
		rec.UserID = userID
		rec.SyncState = models.SyncStateSynced
		rec.Normalize()
		if rec.ItemID == "" {
			logging.Warn().Str("user_id", userID).Msg("reconcile dropping remote record without item id")
			continue
		}
		remote[rec.ItemID] = rec
	}

	local := r.store.Snapshot(userID)
	merged := make([]models.CollectedItem, 0, len(local)+len(remote))

	for _, rec := range local {
		if remoteRec, ok := remote[rec.ItemID]; ok {
			merged = append(merged, remoteRec)
			delete(remote, rec.ItemID)
			result.Overwritten++
			continue
		}
		if rec.Pending() {
			merged = append(merged, rec)
			result.PreservedPending++
			continue
		}
		// Synced locally, gone remotely: the remote deleted it.
		result.Dropped++
	}

	for _, rec := range remote {
		merged = append(merged, rec)
		result.Inserted++
	}

	return result, merged
}
