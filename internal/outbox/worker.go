// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package outbox

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/geodex/internal/gateway"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
)

// pushTimeout bounds a single remote push attempt.
const pushTimeout = 10 * time.Second

// SyncedMarker is the store hook the worker calls after a confirmed push
// so the item's sync state catches up with the remote.
type SyncedMarker interface {
	MarkSynced(ctx context.Context, userID, itemID string) error
}

// Worker drains pending outbox entries to the remote in the background.
// Each tick it claims a batch, skips entries still in backoff, evicts
// expired or exhausted ones, and confirms successful pushes.
type Worker struct {
	outbox *Outbox
	remote gateway.Remote
	marker SyncedMarker
	holder string

	// Control
	ctx    context.Context
	cancel context.CancelFunc

	// State - all protected by mu
	mu       sync.Mutex
	running  bool
	stopping bool          // true while Stop() is waiting for the goroutine
	stopDone chan struct{} // closed when the goroutine exits
}

// NewWorker creates a background retry worker. The marker may be nil when
// no store should be updated on confirm (tests, tooling).
func NewWorker(ob *Outbox, remote gateway.Remote, marker SyncedMarker) *Worker {
	return &Worker{
		outbox: ob,
		remote: remote,
		marker: marker,
		holder: fmt.Sprintf("outbox-worker-%s", uuid.New().String()[:8]),
	}
}

// Start begins the background drain loop. It runs until Stop is called or
// the context is canceled. Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()

	// Wait for any in-progress Stop() to complete
	for w.stopping {
		stopDone := w.stopDone
		w.mu.Unlock()
		<-stopDone
		w.mu.Lock()
	}

	if w.running {
		w.mu.Unlock()
		return nil
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.stopDone = make(chan struct{})

	// Capture context and done channel to avoid races with Stop
	loopCtx := w.ctx
	done := w.stopDone

	w.mu.Unlock()

	go w.runWithContext(loopCtx, done)

	cfg := w.outbox.Config()
	logging.Info().
		Dur("interval", cfg.RetryInterval).
		Int("max_retries", cfg.MaxRetries).
		Int("batch_size", cfg.BatchSize).
		Msg("outbox worker started")
	return nil
}

// Stop gracefully stops the worker and waits for the loop to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running || w.stopping {
		w.mu.Unlock()
		return
	}

	w.cancel()
	w.running = false
	w.stopping = true
	stopDone := w.stopDone
	w.mu.Unlock()

	<-stopDone

	w.mu.Lock()
	w.stopping = false
	w.mu.Unlock()

	logging.Info().Msg("outbox worker stopped")
}

// IsRunning reports whether the drain loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// runWithContext is the drain loop goroutine. The context comes in as a
// parameter to avoid races with Stop. One pass runs immediately so entries
// surviving a restart are pushed without waiting a full interval.
func (w *Worker) runWithContext(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.flushWithContext(ctx)

	ticker := time.NewTicker(w.outbox.Config().RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushWithContext(ctx)
		}
	}
}

// pushResult tracks the outcome of processing a single entry.
type pushResult int

const (
	pushSuccess pushResult = iota
	pushFailed
	pushExpired
	pushExhausted
	pushSkipped
)

// flushWithContext processes one batch of pending entries.
func (w *Worker) flushWithContext(ctx context.Context) {
	entries, err := w.outbox.GetPending(ctx, w.outbox.Config().BatchSize)
	if err != nil {
		logging.Error().Err(err).Msg("outbox worker failed to read pending entries")
		return
	}

	if len(entries) == 0 {
		return
	}

	start := time.Now()
	var success, failed, expired, exhausted, skipped int

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch w.processEntryWithContext(ctx, entry) {
		case pushSuccess:
			success++
		case pushFailed:
			failed++
		case pushExpired:
			expired++
		case pushExhausted:
			exhausted++
		case pushSkipped:
			skipped++
		}
	}

	metrics.RecordOutboxFlush(time.Since(start), len(entries))

	if success > 0 || failed > 0 || expired > 0 || exhausted > 0 {
		logging.Info().
			Int("succeeded", success).
			Int("failed", failed).
			Int("expired", expired).
			Int("exhausted", exhausted).
			Int("skipped", skipped).
			Msg("outbox flush complete")
	}

	// Refresh gauges so pending depth and oldest-entry age track each pass.
	if _, err := w.outbox.Stats(ctx); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Msg("outbox worker failed to refresh stats")
	}
}

// processEntryWithContext handles a single entry. The in-process claim
// stops sibling goroutines; the durable lease stops other processes and
// survives crashes via expiry.
func (w *Worker) processEntryWithContext(ctx context.Context, entry *Entry) pushResult {
	if !w.outbox.TryClaim(entry.ID) {
		return pushSkipped
	}
	defer w.outbox.Release(entry.ID)

	claimed, err := w.outbox.ClaimDurable(ctx, entry.ID, w.holder)
	if err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("outbox worker failed to claim entry")
		return pushFailed
	}
	if !claimed {
		return pushSkipped
	}
	// No lease release on the happy path: Confirm and Delete remove the
	// entry, and a crashed attempt's lease expires on its own.

	cfg := w.outbox.Config()

	if time.Since(entry.CreatedAt) > cfg.EntryTTL {
		return w.evictExpired(ctx, entry)
	}

	if entry.Attempts >= cfg.MaxRetries {
		return w.evictExhausted(ctx, entry)
	}

	if !w.readyForRetry(entry) {
		if err := w.outbox.ReleaseDurable(ctx, entry.ID); err != nil {
			logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("outbox worker failed to release lease")
		}
		return pushSkipped
	}

	return w.pushWithContext(ctx, entry)
}

// evictExpired removes an entry older than the TTL.
func (w *Worker) evictExpired(ctx context.Context, entry *Entry) pushResult {
	logging.Info().
		Str("entry_id", entry.ID).
		Str("op", entry.Op).
		Time("created_at", entry.CreatedAt).
		Msg("outbox entry expired, removing")
	if err := w.outbox.Delete(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("outbox worker failed to delete expired entry")
	}
	metrics.RecordOutboxExpiry()
	return pushExpired
}

// evictExhausted removes an entry that used up its retries.
func (w *Worker) evictExhausted(ctx context.Context, entry *Entry) pushResult {
	logging.Warn().
		Str("entry_id", entry.ID).
		Str("op", entry.Op).
		Int("attempts", entry.Attempts).
		Str("last_error", entry.LastError).
		Msg("outbox entry exceeded max retries, removing")
	if err := w.outbox.Delete(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("outbox worker failed to delete exhausted entry")
	}
	metrics.RecordOutboxExhausted()
	return pushExhausted
}

// readyForRetry checks whether the entry's backoff window has elapsed.
func (w *Worker) readyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return time.Since(entry.LastAttemptAt) >= w.backoff(entry.Attempts)
}

// backoff is base * 2^attempts capped at the configured max. Attempts are
// clamped to keep the shift from overflowing time.Duration.
func (w *Worker) backoff(attempts int) time.Duration {
	cfg := w.outbox.Config()
	if attempts > 50 {
		return cfg.RetryMaxDelay
	}

	d := time.Duration(float64(cfg.RetryBaseDelay) * math.Pow(2, float64(attempts)))
	if d < 0 || d > cfg.RetryMaxDelay {
		return cfg.RetryMaxDelay
	}
	return d
}

// pushWithContext replays an entry against the remote and settles it.
func (w *Worker) pushWithContext(ctx context.Context, entry *Entry) pushResult {
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	err := w.dispatch(pushCtx, entry)
	cancel()

	if err != nil {
		logging.Error().
			Err(err).
			Str("entry_id", entry.ID).
			Str("op", entry.Op).
			Int("attempt", entry.Attempts+1).
			Msg("outbox push failed")
		if recordErr := w.outbox.RecordAttempt(ctx, entry.ID, err); recordErr != nil {
			logging.Error().Err(recordErr).Str("entry_id", entry.ID).Msg("outbox worker failed to record attempt")
		}
		metrics.RecordOutboxRetry(false)
		return pushFailed
	}

	if err := w.outbox.Confirm(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("outbox worker failed to confirm entry")
		metrics.RecordOutboxRetry(false)
		return pushFailed
	}

	w.markSynced(ctx, entry)
	metrics.RecordOutboxRetry(true)
	return pushSuccess
}

// markSynced transitions the entry's item to synced for ops that change
// item state. Deletions have no item to transition. A marker failure is
// logged and left alone: the push already landed, and the item merely
// stays pending until the next confirm or reconcile.
func (w *Worker) markSynced(ctx context.Context, entry *Entry) {
	if w.marker == nil {
		return
	}
	switch entry.Op {
	case OpSaveItem, OpUpdateNotes, OpUpdateMedia:
	default:
		return
	}
	if err := w.marker.MarkSynced(ctx, entry.UserID, entry.ItemID); err != nil {
		logging.Warn().
			Err(err).
			Str("user_id", entry.UserID).
			Str("item_id", entry.ItemID).
			Msg("outbox worker failed to mark item synced")
	}
}

// dispatch maps an entry to its remote call.
func (w *Worker) dispatch(ctx context.Context, entry *Entry) error {
	switch entry.Op {
	case OpSaveItem:
		var item models.CollectedItem
		if err := entry.UnmarshalPayload(&item); err != nil {
			return fmt.Errorf("decode save_item payload: %w", err)
		}
		return w.remote.SaveCollectedItem(ctx, entry.UserID, item)

	case OpUpdateNotes:
		var p NotesPayload
		if err := entry.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode update_notes payload: %w", err)
		}
		return w.remote.UpdateNotes(ctx, entry.UserID, entry.ItemID, p.Notes)

	case OpUpdateMedia:
		var p MediaPayload
		if err := entry.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode update_media payload: %w", err)
		}
		return w.remote.UpdateMedia(ctx, entry.UserID, entry.ItemID, p.LocalMediaRefs, p.RemoteMediaRefs)

	case OpDeleteAll:
		return w.remote.DeleteAllCollectedItems(ctx, entry.UserID)

	case OpDeleteMediaAsset:
		var p MediaAssetPayload
		if err := entry.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode delete_media_asset payload: %w", err)
		}
		return w.remote.DeleteMediaAsset(ctx, p.RemoteRef)
	}

	return fmt.Errorf("%w: %q", ErrUnknownOp, entry.Op)
}
