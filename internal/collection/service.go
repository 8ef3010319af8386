// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package collection

import (
	"context"
	"time"

	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/models"
	"github.com/tomtom215/geodex/internal/outbox"
	"github.com/tomtom215/geodex/internal/store"
)

// Publisher pushes committed change events to in-process subscribers.
// *notify.Broker satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// Service is the orchestrator behind the API: local store commit, snapshot
// flush, outbox enqueue, change event publish, in that order. Only the local
// commit decides the caller-visible outcome; the downstream steps are
// fail-soft (see the package documentation).
type Service struct {
	store      *store.Store
	queue      outbox.Queue
	publisher  Publisher
	reconciler *Reconciler
	clock      func() time.Time
}

// NewService creates the collection service. queue, publisher, and reconciler
// may each be nil: a nil queue skips remote propagation, a nil publisher skips
// change events, and a nil reconciler makes StartSession a local-only no-op
// (the store runs fully offline).
func NewService(st *store.Store, queue outbox.Queue, publisher Publisher, reconciler *Reconciler) *Service {
	return &Service{
		store:      st,
		queue:      queue,
		publisher:  publisher,
		reconciler: reconciler,
		clock:      time.Now,
	}
}

// StartSession runs one reconciliation pass for the user. Sessions without a
// configured remote start offline: no fetch, zero result, no error.
func (s *Service) StartSession(ctx context.Context, userID string) (models.MergeResult, error) {
	if s.reconciler == nil {
		logging.Debug().Str("user_id", userID).Msg("session start without remote, skipping reconcile")
		return models.MergeResult{}, nil
	}
	return s.reconciler.Reconcile(ctx, userID)
}

// Collect marks an item collected now. Collecting an already-collected item
// is an idempotent no-op: the existing record is returned with created false
// and nothing is flushed, enqueued, or published.
func (s *Service) Collect(ctx context.Context, userID, itemID string) (models.CollectedItem, bool) {
	now := s.clock()
	created := s.store.Collect(userID, itemID, now)
	item, _ := s.store.Get(userID, itemID)
	if !created {
		return item, false
	}

	s.flush(ctx, "collect")
	s.enqueue(ctx, outbox.Mutation{
		Op:      outbox.OpSaveItem,
		UserID:  userID,
		ItemID:  itemID,
		Payload: item,
	})
	s.publish(ctx, models.ChangeEvent{
		Type:      models.ChangeCollected,
		UserID:    userID,
		ItemID:    itemID,
		Item:      &item,
		Timestamp: now,
	})
	return item, true
}

// UpdateNotes replaces the notes on a collected item. A record that does not
// exist is a silent no-op (ok false, NotFoundLocal).
func (s *Service) UpdateNotes(ctx context.Context, userID, itemID, notes string) (models.CollectedItem, bool) {
	if !s.store.UpdateNotes(userID, itemID, notes) {
		return models.CollectedItem{}, false
	}
	item, _ := s.store.Get(userID, itemID)

	s.flush(ctx, "update_notes")
	s.enqueue(ctx, outbox.Mutation{
		Op:      outbox.OpUpdateNotes,
		UserID:  userID,
		ItemID:  itemID,
		Payload: outbox.NotesPayload{Notes: notes},
	})
	s.publish(ctx, models.ChangeEvent{
		Type:      models.ChangeNotesUpdated,
		UserID:    userID,
		ItemID:    itemID,
		Item:      &item,
		Timestamp: s.clock(),
	})
	return item, true
}

// AddMedia attaches a media reference to a collected item. The remote learns
// the full post-mutation ref lists (last write wins for racing pushes).
func (s *Service) AddMedia(ctx context.Context, userID, itemID, localRef, remoteRef string) (models.CollectedItem, bool) {
	if !s.store.AddMedia(userID, itemID, localRef, remoteRef) {
		return models.CollectedItem{}, false
	}
	item, _ := s.store.Get(userID, itemID)

	s.flush(ctx, "add_media")
	s.enqueueMediaState(ctx, item)
	s.publish(ctx, models.ChangeEvent{
		Type:      models.ChangeMediaAdded,
		UserID:    userID,
		ItemID:    itemID,
		Item:      &item,
		Timestamp: s.clock(),
	})
	return item, true
}

// RemoveMedia detaches a media reference and its index-aligned remote ref.
// When the removed slot had been uploaded, a best-effort delete_media_asset
// entry is enqueued so the remote asset is cleaned up too.
func (s *Service) RemoveMedia(ctx context.Context, userID, itemID, localRef string) (models.CollectedItem, bool) {
	removed, remoteRef := s.store.RemoveMedia(userID, itemID, localRef)
	if !removed {
		return models.CollectedItem{}, false
	}
	item, _ := s.store.Get(userID, itemID)

	s.flush(ctx, "remove_media")
	s.enqueueMediaState(ctx, item)
	if remoteRef != "" {
		s.enqueue(ctx, outbox.Mutation{
			Op:      outbox.OpDeleteMediaAsset,
			UserID:  userID,
			ItemID:  itemID,
			Payload: outbox.MediaAssetPayload{RemoteRef: remoteRef},
		})
	}
	s.publish(ctx, models.ChangeEvent{
		Type:      models.ChangeMediaRemoved,
		UserID:    userID,
		ItemID:    itemID,
		Item:      &item,
		Timestamp: s.clock(),
	})
	return item, true
}

// ResetAll clears one user's local records and enqueues a remote delete-all.
// Resetting a user with no records is idempotent and still propagates, so a
// reset issued offline converges once connectivity returns.
func (s *Service) ResetAll(ctx context.Context, userID string) {
	if err := s.store.ResetAll(ctx, userID); err != nil {
		logging.Error().Err(err).
			Str("user_id", userID).
			Msg("collection snapshot flush failed after reset")
	}

	s.enqueue(ctx, outbox.Mutation{
		Op:     outbox.OpDeleteAll,
		UserID: userID,
	})
	s.publish(ctx, models.ChangeEvent{
		Type:      models.ChangeReset,
		UserID:    userID,
		Timestamp: s.clock(),
	})
}

// Items returns a deep-copied, stably ordered view of one user's records.
func (s *Service) Items(userID string) []models.CollectedItem {
	return s.store.Snapshot(userID)
}

// Item returns a copy of one record, if present.
func (s *Service) Item(userID, itemID string) (models.CollectedItem, bool) {
	return s.store.Get(userID, itemID)
}

// IsCollected reports whether a record exists for (userID, itemID).
func (s *Service) IsCollected(userID, itemID string) bool {
	return s.store.IsCollected(userID, itemID)
}

// enqueueMediaState enqueues the item's full media ref lists as one
// update_media entry.
func (s *Service) enqueueMediaState(ctx context.Context, item models.CollectedItem) {
	s.enqueue(ctx, outbox.Mutation{
		Op:     outbox.OpUpdateMedia,
		UserID: item.UserID,
		ItemID: item.ItemID,
		Payload: outbox.MediaPayload{
			LocalMediaRefs:  item.LocalMediaRefs,
			RemoteMediaRefs: item.RemoteMediaRefs,
		},
	})
}

// flush persists the working set after a committed mutation. The mutation is
// already visible in memory; a failed flush degrades durability, not
// correctness, so it is logged and not returned.
func (s *Service) flush(ctx context.Context, operation string) {
	if err := s.store.SaveAll(ctx); err != nil {
		logging.Error().Err(err).
			Str("operation", operation).
			Msg("collection snapshot flush failed after mutation")
	}
}

// enqueue hands a mutation to the outbox. Failures are logged only: the
// record stays pending locally and a later reconcile re-asserts it.
func (s *Service) enqueue(ctx context.Context, m outbox.Mutation) {
	if s.queue == nil {
		return
	}
	entryID, err := s.queue.Enqueue(ctx, m)
	if err != nil {
		logging.Error().Err(err).
			Str("op", m.Op).
			Str("user_id", m.UserID).
			Str("item_id", m.ItemID).
			Msg("collection outbox enqueue failed")
		return
	}
	logging.Debug().
		Str("entry_id", entryID).
		Str("op", m.Op).
		Str("user_id", m.UserID).
		Msg("collection mutation enqueued for push")
}

// publish emits a change event for in-process subscribers. Subscribers are a
// notification surface, not a system of record, so failures are logged only.
func (s *Service) publish(ctx context.Context, event models.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("user_id", event.UserID).
			Msg("collection change event publish failed")
	}
}
