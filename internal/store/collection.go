// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package store

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/models"
)

// IsCollected reports whether a record exists for (userID, itemID).
func (s *Store) IsCollected(userID, itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[userID][itemID]
	return ok
}

// Get returns a copy of the record for (userID, itemID), if present.
func (s *Store) Get(userID, itemID string) (models.CollectedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[userID][itemID]
	if !ok {
		return models.CollectedItem{}, false
	}
	return rec.Clone(), true
}

// Snapshot returns a deep-copied view of one user's records, ordered by
// collection time (item ID as tiebreak) for stable presentation.
func (s *Store) Snapshot(userID string) []models.CollectedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userItems := s.items[userID]
	out := make([]models.CollectedItem, 0, len(userItems))
	for _, rec := range userItems {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CollectedAt.Equal(out[j].CollectedAt) {
			return out[i].CollectedAt.Before(out[j].CollectedAt)
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// Users returns the IDs of all users with at least one record, sorted.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.items))
	for userID := range s.items {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// PendingForUser returns copies of the user's records still awaiting a push.
func (s *Store) PendingForUser(userID string) []models.CollectedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CollectedItem
	for _, rec := range s.items[userID] {
		if rec.Pending() {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Collect inserts a new record for (userID, itemID) collected at now.
// Collecting an already-collected item is a no-op; created reports whether a
// record was inserted.
func (s *Store) Collect(userID, itemID string, now time.Time) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[userID][itemID]; ok {
		return false
	}

	userItems, ok := s.items[userID]
	if !ok {
		userItems = make(map[string]*models.CollectedItem)
		s.items[userID] = userItems
	}

	userItems[itemID] = &models.CollectedItem{
		UserID:          userID,
		ItemID:          itemID,
		CollectedAt:     now,
		LocalMediaRefs:  []string{},
		RemoteMediaRefs: []string{},
		SyncState:       models.SyncStatePendingCreate,
	}
	return true
}

// UpdateNotes replaces the notes on an existing record. A missing record is
// a silent no-op (ok false).
func (s *Store) UpdateNotes(userID, itemID, notes string) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.items[userID][itemID]
	if !found {
		return false
	}
	rec.Notes = notes
	markPendingUpdate(rec)
	return true
}

// AddMedia appends a media reference to an existing record. The local ref is
// deduplicated; a non-empty remoteRef is appended only where it keeps
// RemoteMediaRefs a positional prefix of LocalMediaRefs:
//
//   - new localRef with all earlier slots uploaded: both lists grow together
//   - new localRef with earlier uploads outstanding: only the local list
//     grows (the remote ref for this slot has to wait its turn)
//   - existing localRef whose slot is next to fill: the remote ref completes
//     it (the upload-finished path)
//
// A missing record is a silent no-op (ok false).
func (s *Store) AddMedia(userID, itemID, localRef, remoteRef string) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.items[userID][itemID]
	if !found {
		return false
	}

	idx := indexOf(rec.LocalMediaRefs, localRef)
	if idx >= 0 {
		// Duplicate local ref: the only legal change is completing its
		// remote slot.
		if remoteRef != "" && len(rec.RemoteMediaRefs) == idx {
			rec.RemoteMediaRefs = append(rec.RemoteMediaRefs, remoteRef)
			markPendingUpdate(rec)
		}
		return true
	}

	rec.LocalMediaRefs = append(rec.LocalMediaRefs, localRef)
	if remoteRef != "" {
		if len(rec.RemoteMediaRefs) == len(rec.LocalMediaRefs)-1 {
			rec.RemoteMediaRefs = append(rec.RemoteMediaRefs, remoteRef)
		} else {
			logging.Warn().
				Str("user_id", userID).
				Str("item_id", itemID).
				Int("local_refs", len(rec.LocalMediaRefs)).
				Int("remote_refs", len(rec.RemoteMediaRefs)).
				Msg("store skipping remote ref that would break media alignment")
		}
	}
	markPendingUpdate(rec)
	return true
}

// RemoveMedia removes a media reference and its index-aligned remote ref.
// It returns the removed remote ref (empty if the slot was never uploaded)
// so the caller can signal remote asset deletion. A missing record or ref is
// a silent no-op.
func (s *Store) RemoveMedia(userID, itemID, localRef string) (removed bool, remoteRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.items[userID][itemID]
	if !found {
		return false, ""
	}

	idx := indexOf(rec.LocalMediaRefs, localRef)
	if idx < 0 {
		return false, ""
	}

	rec.LocalMediaRefs = append(rec.LocalMediaRefs[:idx], rec.LocalMediaRefs[idx+1:]...)
	if idx < len(rec.RemoteMediaRefs) {
		remoteRef = rec.RemoteMediaRefs[idx]
		rec.RemoteMediaRefs = append(rec.RemoteMediaRefs[:idx], rec.RemoteMediaRefs[idx+1:]...)
	}
	markPendingUpdate(rec)
	return true, remoteRef
}

// ResetAll clears one user's records and persists the shrunken snapshot.
// Other users' records are untouched.
func (s *Store) ResetAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	removed := len(s.items[userID])
	delete(s.items, userID)
	s.mu.Unlock()

	logging.Info().Str("user_id", userID).Int("removed", removed).Msg("store reset user")
	return s.SaveAll(ctx)
}

// ReplaceUser swaps one user's record set with the given records and
// persists. This is the reconciler's commit path: the union it computed
// lands in a single write, and an empty set removes the user's index
// entirely. Records are normalized and deep-copied on the way in.
func (s *Store) ReplaceUser(ctx context.Context, userID string, items []models.CollectedItem) error {
	userItems := make(map[string]*models.CollectedItem, len(items))
	for i := range items {
		rec := items[i].Clone()
		rec.Normalize()
		if rec.ItemID == "" {
			continue
		}
		rec.UserID = userID
		userItems[rec.ItemID] = &rec
	}

	s.mu.Lock()
	if len(userItems) == 0 {
		delete(s.items, userID)
	} else {
		s.items[userID] = userItems
	}
	s.mu.Unlock()

	return s.SaveAll(ctx)
}

// MarkSynced transitions a pending record to synced and persists. This is
// the outbox confirm path; a record removed in the meantime (reset) is a
// no-op.
func (s *Store) MarkSynced(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	rec, found := s.items[userID][itemID]
	if found {
		rec.SyncState = models.SyncStateSynced
	}
	s.mu.Unlock()

	if !found {
		return nil
	}
	return s.SaveAll(ctx)
}

// markPendingUpdate moves a synced record back to pending_update. Records
// already pending keep their state: a create the remote has never seen must
// stay a create.
func markPendingUpdate(rec *models.CollectedItem) {
	if rec.SyncState == models.SyncStateSynced {
		rec.SyncState = models.SyncStatePendingUpdate
	}
}

func indexOf(refs []string, ref string) int {
	for i, r := range refs {
		if r == ref {
			return i
		}
	}
	return -1
}
