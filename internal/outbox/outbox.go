// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package outbox persists remote-bound mutations before they are pushed.
//
// Every local mutation enqueues a durable entry; the retry worker drains
// entries to the remote with exponential backoff and confirms them on
// success. Entries survive restarts, so a mutation accepted while offline
// is pushed on the next run. The outbox shares the store's BadgerDB under
// its own key namespace.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/metrics"
)

// Outbox operations. Each entry names the remote call it replays.
const (
	OpSaveItem         = "save_item"
	OpUpdateNotes      = "update_notes"
	OpUpdateMedia      = "update_media"
	OpDeleteAll        = "delete_all"
	OpDeleteMediaAsset = "delete_media_asset"
)

// Key prefixes. The outbox lives in the store's BadgerDB, so both prefixes
// are namespaced away from the collection snapshot key.
const (
	prefixPending   = "outbox:pending:"
	prefixConfirmed = "outbox:confirmed:"
)

// Errors
var (
	// ErrOutboxClosed is returned when an operation runs against a closed outbox.
	ErrOutboxClosed = errors.New("outbox is closed")

	// ErrEmptyEntryID is returned when an empty entry ID is provided.
	ErrEmptyEntryID = errors.New("entry ID cannot be empty")

	// ErrEntryNotFound is returned when an entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnknownOp is returned when a mutation names an unrecognized operation.
	ErrUnknownOp = errors.New("unknown outbox operation")
)

// Mutation is the input to Enqueue: one remote-bound operation with its
// op-specific payload. Payload is JSON-serialized into the entry; nil is
// valid for operations that carry no body (delete_all).
type Mutation struct {
	Op      string
	UserID  string
	ItemID  string
	Payload interface{}
}

// NotesPayload is the payload for update_notes entries.
type NotesPayload struct {
	Notes string `json:"notes"`
}

// MediaPayload is the payload for update_media entries. It carries the full
// ref lists at enqueue time, so replaying the entry is a state overwrite
// rather than a delta.
type MediaPayload struct {
	LocalMediaRefs  []string `json:"local_media_refs"`
	RemoteMediaRefs []string `json:"remote_media_refs"`
}

// MediaAssetPayload is the payload for delete_media_asset entries.
type MediaAssetPayload struct {
	RemoteRef string `json:"remote_ref"`
}

// Entry is a single persisted outbox record.
type Entry struct {
	// ID is the unique entry identifier. IDs are UUIDv7, so pending keys
	// iterate in approximate enqueue order.
	ID string `json:"id"`

	// Op names the remote operation this entry replays.
	Op string `json:"op"`

	// UserID scopes the operation. ItemID is empty for delete_all.
	UserID string `json:"user_id"`
	ItemID string `json:"item_id,omitempty"`

	// Payload is the serialized op-specific data.
	// Use UnmarshalPayload to deserialize into a specific type.
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is when the entry was enqueued.
	CreatedAt time.Time `json:"created_at"`

	// Attempts is the number of push attempts so far.
	Attempts int `json:"attempts"`

	// LastAttemptAt is the time of the last push attempt.
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`

	// LastError is the error message from the last failed attempt.
	LastError string `json:"last_error,omitempty"`

	// Confirmed indicates the entry was successfully pushed.
	Confirmed bool `json:"confirmed"`

	// ConfirmedAt is when the entry was confirmed.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	// LeaseExpiresAt is when the current processing lease expires. Zero
	// means no active lease. An entry can be claimed when the lease is
	// zero or expired, which makes claims crash-safe: a worker that dies
	// holding a lease blocks the entry only until expiry.
	LeaseExpiresAt time.Time `json:"lease_expires_at,omitempty"`

	// LeaseHolder identifies the worker holding the lease.
	LeaseHolder string `json:"lease_holder,omitempty"`
}

// UnmarshalPayload deserializes the payload into the given type.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats is a point-in-time summary of the outbox, served by the stats
// endpoint and mirrored into the Prometheus gauges.
type Stats struct {
	// Pending is the number of unconfirmed entries.
	Pending int64 `json:"pending"`

	// Confirmed is the number of confirmed entries awaiting TTL eviction.
	Confirmed int64 `json:"confirmed"`

	// PendingByOp breaks the pending count down by operation.
	PendingByOp map[string]int64 `json:"pending_by_op,omitempty"`

	// OldestPending is the CreatedAt of the oldest pending entry.
	// Zero when nothing is pending.
	OldestPending time.Time `json:"oldest_pending,omitempty"`

	// Lifetime process counters.
	TotalEnqueued  int64 `json:"total_enqueued"`
	TotalConfirmed int64 `json:"total_confirmed"`
	TotalAttempts  int64 `json:"total_attempts"`
}

// Queue is the outbox surface the collection service depends on. The
// retry worker uses the concrete *Outbox, which adds attempt tracking
// and leasing.
type Queue interface {
	// Enqueue persists a mutation before pushing (durable). Returns the
	// entry ID for later confirmation.
	Enqueue(ctx context.Context, m Mutation) (entryID string, err error)

	// Confirm marks an entry as successfully pushed to the remote.
	Confirm(ctx context.Context, entryID string) error

	// GetPending returns unconfirmed entries in approximate enqueue order,
	// up to limit (0 means no limit).
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	// Stats returns a current summary of the outbox.
	Stats(ctx context.Context) (Stats, error)

	// Close marks the outbox closed. The shared BadgerDB stays open; its
	// lifecycle belongs to the store.
	Close() error
}

// Outbox is the BadgerDB-backed implementation. It shares the store's
// database and keeps pending and confirmed entries in separate keyspaces.
//
// The inflight map prevents two goroutines in this process from pushing
// the same entry; the durable lease on the entry itself extends that
// guarantee across crashes and restarts.
type Outbox struct {
	db  *badger.DB
	cfg config.OutboxConfig

	totalEnqueued  atomic.Int64
	totalConfirmed atomic.Int64
	totalAttempts  atomic.Int64

	mu     sync.RWMutex
	closed bool

	// inflight tracks entry IDs currently being processed in this process.
	// Key: entry ID, value: claim time.
	inflight sync.Map
}

var _ Queue = (*Outbox)(nil)

// New creates an Outbox over the given BadgerDB. Zero config fields get
// the documented defaults so a bare OutboxConfig is usable in tests.
func New(db *badger.DB, cfg config.OutboxConfig) *Outbox {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 15 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 5 * time.Minute
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = time.Minute
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 7 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	return &Outbox{db: db, cfg: cfg}
}

// Config returns the effective outbox configuration (defaults applied).
func (o *Outbox) Config() config.OutboxConfig {
	return o.cfg
}

// ValidOp reports whether op is a recognized outbox operation.
func ValidOp(op string) bool {
	switch op {
	case OpSaveItem, OpUpdateNotes, OpUpdateMedia, OpDeleteAll, OpDeleteMediaAsset:
		return true
	}
	return false
}

// newEntryID returns a time-ordered unique ID. UUIDv7 keys make Badger's
// prefix iteration walk pending entries oldest-first. NewV7 only fails
// when the random source does, in which case a v4 still gives uniqueness.
func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Enqueue persists a mutation as a pending entry. The write is durable
// before Enqueue returns; the caller's local state never waits on the
// remote. Entries carry the configured TTL so Badger evicts abandoned
// records natively.
func (o *Outbox) Enqueue(ctx context.Context, m Mutation) (string, error) {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return "", ErrOutboxClosed
	}
	o.mu.RUnlock()

	if !ValidOp(m.Op) {
		return "", fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var payload json.RawMessage
	if m.Payload != nil {
		data, err := json.Marshal(m.Payload)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
		payload = data
	}

	entry := &Entry{
		ID:        newEntryID(),
		Op:        m.Op,
		UserID:    m.UserID,
		ItemID:    m.ItemID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	key := []byte(prefixPending + entry.ID)
	err = o.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if o.cfg.EntryTTL > 0 {
			e = e.WithTTL(o.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write entry: %w", err)
	}

	o.totalEnqueued.Add(1)
	metrics.RecordOutboxEnqueue(m.Op)

	logging.Debug().
		Str("entry_id", entry.ID).
		Str("op", m.Op).
		Str("user_id", m.UserID).
		Msg("outbox entry enqueued")
	return entry.ID, nil
}

// Confirm moves an entry from pending to confirmed in one transaction.
// Confirmed entries keep the TTL, so they age out without a compactor.
func (o *Outbox) Confirm(ctx context.Context, entryID string) error {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return ErrOutboxClosed
	}
	o.mu.RUnlock()

	if entryID == "" {
		return ErrEmptyEntryID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pendingKey := []byte(prefixPending + entryID)
	confirmedKey := []byte(prefixConfirmed + entryID)

	err := o.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get pending entry: %w", err)
		}

		var entry Entry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		now := time.Now().UTC()
		entry.Confirmed = true
		entry.ConfirmedAt = &now
		entry.LeaseExpiresAt = time.Time{}
		entry.LeaseHolder = ""

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal confirmed entry: %w", err)
		}

		e := badger.NewEntry(confirmedKey, data)
		if o.cfg.EntryTTL > 0 {
			e = e.WithTTL(o.cfg.EntryTTL)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set confirmed entry: %w", err)
		}
		if err := txn.Delete(pendingKey); err != nil {
			return fmt.Errorf("delete pending entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.totalConfirmed.Add(1)
	metrics.RecordOutboxConfirm()
	return nil
}

// GetPending returns unconfirmed entries, oldest first, up to limit
// (0 means all). Badger's View gives a consistent snapshot, so a batch
// never observes a half-applied confirm.
func (o *Outbox) GetPending(ctx context.Context, limit int) ([]*Entry, error) {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil, ErrOutboxClosed
	}
	o.mu.RUnlock()

	var entries []*Entry

	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if limit > 0 && len(entries) >= limit {
				return nil
			}

			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).
					Msg("outbox skipping malformed entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}

	return entries, nil
}

// RecordAttempt increments an entry's attempt count and stores the error
// from the failed push. Called by the worker after each failure.
func (o *Outbox) RecordAttempt(ctx context.Context, entryID string, attemptErr error) error {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return ErrOutboxClosed
	}
	o.mu.RUnlock()

	if entryID == "" {
		return ErrEmptyEntryID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(prefixPending + entryID)

	err := o.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		if attemptErr != nil {
			entry.LastError = attemptErr.Error()
		}

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		e := badger.NewEntry(key, data)
		if o.cfg.EntryTTL > 0 {
			e = e.WithTTL(o.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return err
	}

	o.totalAttempts.Add(1)
	return nil
}

// Delete permanently removes an entry from either keyspace. Used when an
// entry expires or exhausts its retries.
func (o *Outbox) Delete(ctx context.Context, entryID string) error {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return ErrOutboxClosed
	}
	o.mu.RUnlock()

	if entryID == "" {
		return ErrEmptyEntryID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pendingKey := []byte(prefixPending + entryID)
	confirmedKey := []byte(prefixConfirmed + entryID)

	return o.db.Update(func(txn *badger.Txn) error {
		// Badger's Delete does not report missing keys, so probe first.
		if _, err := txn.Get(pendingKey); err == nil {
			return txn.Delete(pendingKey)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get pending entry: %w", err)
		}

		if _, err := txn.Get(confirmedKey); err == nil {
			return txn.Delete(confirmedKey)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get confirmed entry: %w", err)
		}

		return ErrEntryNotFound
	})
}

// TryClaim attempts an in-process claim on an entry. Returns false when
// another goroutine already holds it. The caller must Release when done,
// regardless of outcome.
func (o *Outbox) TryClaim(entryID string) bool {
	_, alreadyClaimed := o.inflight.LoadOrStore(entryID, time.Now())
	return !alreadyClaimed
}

// Release drops the in-process claim on an entry.
func (o *Outbox) Release(entryID string) {
	o.inflight.Delete(entryID)
}

// ClaimDurable attempts a durable lease on a pending entry.
//
// Returns (true, nil) when the lease was acquired, (false, nil) when
// another holder's lease is still active, and (false, err) on storage
// errors. A holder re-claiming its own live lease extends it.
func (o *Outbox) ClaimDurable(ctx context.Context, entryID, holder string) (bool, error) {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return false, ErrOutboxClosed
	}
	o.mu.RUnlock()

	if entryID == "" {
		return false, ErrEmptyEntryID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := time.Now()
	expiry := now.Add(o.cfg.LeaseDuration)

	var claimed bool
	err := o.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + entryID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		if !entry.LeaseExpiresAt.IsZero() && now.Before(entry.LeaseExpiresAt) && entry.LeaseHolder != holder {
			claimed = false
			return nil
		}

		entry.LeaseExpiresAt = expiry
		entry.LeaseHolder = holder

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		e := badger.NewEntry(key, data)
		if o.cfg.EntryTTL > 0 {
			e = e.WithTTL(o.cfg.EntryTTL)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set entry: %w", err)
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// ReleaseDurable clears a durable lease so another worker can claim the
// entry immediately instead of waiting for expiry. Releasing a missing
// entry is a no-op: the confirm path deletes entries while leased.
func (o *Outbox) ReleaseDurable(ctx context.Context, entryID string) error {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return ErrOutboxClosed
	}
	o.mu.RUnlock()

	if entryID == "" {
		return ErrEmptyEntryID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return o.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + entryID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.LeaseExpiresAt = time.Time{}
		entry.LeaseHolder = ""

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		e := badger.NewEntry(key, data)
		if o.cfg.EntryTTL > 0 {
			e = e.WithTTL(o.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
}

// Stats walks both keyspaces and returns a summary. The Prometheus outbox
// gauges are refreshed as a side effect, so any caller (worker pass, stats
// endpoint) keeps them current.
func (o *Outbox) Stats(ctx context.Context) (Stats, error) {
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return Stats{}, ErrOutboxClosed
	}
	o.mu.RUnlock()

	stats := Stats{
		PendingByOp:    make(map[string]int64),
		TotalEnqueued:  o.totalEnqueued.Load(),
		TotalConfirmed: o.totalConfirmed.Load(),
		TotalAttempts:  o.totalAttempts.Load(),
	}

	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		pendingPrefix := []byte(prefixPending)
		for it.Seek(pendingPrefix); it.ValidForPrefix(pendingPrefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			stats.Pending++
			stats.PendingByOp[entry.Op]++
			if stats.OldestPending.IsZero() || entry.CreatedAt.Before(stats.OldestPending) {
				stats.OldestPending = entry.CreatedAt
			}
		}

		confirmedPrefix := []byte(prefixConfirmed)
		for it.Seek(confirmedPrefix); it.ValidForPrefix(confirmedPrefix); it.Next() {
			stats.Confirmed++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("iterate entries: %w", err)
	}

	oldestAge := 0.0
	if !stats.OldestPending.IsZero() {
		oldestAge = time.Since(stats.OldestPending).Seconds()
	}
	metrics.UpdateOutboxGauges(stats.Pending, oldestAge, stats.PendingByOp)

	return stats, nil
}

// Close marks the outbox closed. The underlying BadgerDB is shared with
// the store and stays open; closing it is the store's job.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	logging.Info().Msg("outbox closed")
	return nil
}
