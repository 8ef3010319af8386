// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
)

// snapshotKey is the single fixed key the working set persists under.
const snapshotKey = "collection:snapshot"

// snapshotSchemaVersion is the current envelope version written by SaveAll.
const snapshotSchemaVersion = 1

// closeTimeout bounds how long Close waits for BadgerDB to shut down.
const closeTimeout = 30 * time.Second

// Errors
var (
	// ErrStoreClosed is returned when an operation runs against a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// snapshotEnvelope is the versioned on-disk form of the working set.
type snapshotEnvelope struct {
	SchemaVersion int                    `json:"schema_version"`
	SavedAt       time.Time              `json:"saved_at"`
	Items         []models.CollectedItem `json:"items"`
}

// Store is the BadgerDB-backed local cache of all users' collected items.
//
// The in-memory index is map[userID]map[itemID]*CollectedItem so a lookup is
// O(1) and operations scoped to one user structurally cannot touch another
// user's records. The index is the working truth; Badger holds its snapshot.
type Store struct {
	db       *badger.DB
	inMemory bool
	gcRatio  float64

	mu     sync.RWMutex
	items  map[string]map[string]*models.CollectedItem
	closed bool

	// saveMu serializes snapshot persists so an older marshal can never
	// land after a newer one.
	saveMu sync.Mutex
}

// Open opens (or creates) the store at the configured path and loads the
// persisted snapshot into memory. A corrupt snapshot is discarded and the
// store starts empty; Open fails only when BadgerDB itself cannot open.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Store{
		db:       db,
		inMemory: cfg.InMemory,
		gcRatio:  cfg.GCDiscardRatio,
		items:    make(map[string]map[string]*models.CollectedItem),
	}

	loaded := s.LoadAll()

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("records", len(loaded)).
		Msg("store opened")
	return s, nil
}

// LoadAll reads the persisted snapshot, runs the versioned decode, and
// replaces the in-memory index with the result. It returns the loaded
// records. Corrupt payloads are cleared and logged; LoadAll never fails.
func (s *Store) LoadAll() []models.CollectedItem {
	start := time.Now()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		logging.Error().Err(err).Msg("store snapshot read failed, starting empty")
		s.replaceIndex(nil)
		metrics.RecordStoreOp("load_all", time.Since(start), err)
		return nil
	}

	if len(data) == 0 {
		s.replaceIndex(nil)
		metrics.RecordStoreOp("load_all", time.Since(start), nil)
		return nil
	}

	records, decodeErr := decodeSnapshot(data)
	if decodeErr != nil {
		// Whole-payload corruption: discard and start empty. Resetting the
		// index matters as much as clearing the key — records loaded by an
		// earlier pass must not outlive the payload they came from. This is
		// the one recovery path that loses data, so it is loud in logs and
		// visible in metrics, but it is never an error to the caller.
		logging.Error().Err(decodeErr).Int("payload_bytes", len(data)).
			Msg("store snapshot corrupt, clearing payload")
		s.replaceIndex(nil)
		metrics.StoreCorruptRecoveries.Inc()
		if clearErr := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(snapshotKey))
		}); clearErr != nil {
			logging.Error().Err(clearErr).Msg("store failed to clear corrupt snapshot")
		}
		metrics.RecordStoreOp("load_all", time.Since(start), decodeErr)
		return nil
	}

	loaded := s.replaceIndex(records)

	metrics.RecordStoreOp("load_all", time.Since(start), nil)
	metrics.StoreRecords.Set(float64(s.TotalRecords()))
	return loaded
}

// decodeSnapshot applies the versioned decode rules:
// version 1 is the envelope, version 0 a bare record array.
func decodeSnapshot(data []byte) ([]models.CollectedItem, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		return env.Items, nil
	}

	// Version 0 (legacy, pre-envelope): bare JSON array of records.
	var legacy []models.CollectedItem
	if err := json.Unmarshal(data, &legacy); err == nil {
		return legacy, nil
	}

	return nil, fmt.Errorf("snapshot matches no known schema version")
}

// replaceIndex rebuilds the in-memory index from decoded records, applying
// per-field defaults and dropping records without an identity. Returns the
// records actually indexed.
func (s *Store) replaceIndex(records []models.CollectedItem) []models.CollectedItem {
	index := make(map[string]map[string]*models.CollectedItem)
	kept := make([]models.CollectedItem, 0, len(records))

	for i := range records {
		rec := records[i]
		rec.Normalize()
		if rec.UserID == "" || rec.ItemID == "" {
			logging.Warn().
				Str("user_id", rec.UserID).
				Str("item_id", rec.ItemID).
				Msg("store dropping record without identity")
			continue
		}
		userItems, ok := index[rec.UserID]
		if !ok {
			userItems = make(map[string]*models.CollectedItem)
			index[rec.UserID] = userItems
		}
		clone := rec.Clone()
		userItems[rec.ItemID] = &clone
		kept = append(kept, rec)
	}

	s.mu.Lock()
	s.items = index
	s.mu.Unlock()

	return kept
}

// SaveAll serializes the entire working set into the versioned envelope and
// overwrites the snapshot key in one Badger transaction. The in-memory state
// is already committed when SaveAll runs; a persist failure is reported to
// the caller but does not roll anything back (local-first).
func (s *Store) SaveAll(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	start := time.Now()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	env := snapshotEnvelope{
		SchemaVersion: snapshotSchemaVersion,
		SavedAt:       time.Now().UTC(),
		Items:         s.flattenLocked(),
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		metrics.RecordStoreOp("save_all", time.Since(start), err)
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), data)
	})
	metrics.RecordStoreOp("save_all", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	metrics.StoreSnapshotBytes.Observe(float64(len(data)))
	metrics.StoreRecords.Set(float64(len(env.Items)))
	return nil
}

// flattenLocked returns all records as a deterministically ordered slice of
// copies. Callers must hold at least a read lock.
func (s *Store) flattenLocked() []models.CollectedItem {
	userIDs := make([]string, 0, len(s.items))
	for userID := range s.items {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var out []models.CollectedItem
	for _, userID := range userIDs {
		userItems := s.items[userID]
		itemIDs := make([]string, 0, len(userItems))
		for itemID := range userItems {
			itemIDs = append(itemIDs, itemID)
		}
		sort.Strings(itemIDs)
		for _, itemID := range itemIDs {
			out = append(out, userItems[itemID].Clone())
		}
	}
	return out
}

// TotalRecords returns the number of records across all users.
func (s *Store) TotalRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, userItems := range s.items {
		total += len(userItems)
	}
	return total
}

// RunGC triggers a BadgerDB value-log garbage collection pass. Call
// periodically; a pass that finds nothing to rewrite is not an error.
func (s *Store) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	if s.inMemory {
		// No value log to collect.
		return nil
	}

	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			metrics.StoreGCRuns.WithLabelValues("noop").Inc()
			return nil
		}
		if err != nil {
			metrics.StoreGCRuns.WithLabelValues("error").Inc()
			return fmt.Errorf("run GC: %w", err)
		}
		metrics.StoreGCRuns.WithLabelValues("reclaimed").Inc()
	}
}

// Close gracefully shuts down the store. If BadgerDB does not close within
// the timeout, Close returns an error rather than hanging shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	logging.Info().Msg("closing store")

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		return nil
	case <-time.After(closeTimeout):
		return fmt.Errorf("badgerdb close timeout after %v", closeTimeout)
	}
}

// DB returns the underlying BadgerDB instance for components that share the
// same database (the outbox keyspace). The returned DB must not be closed
// directly; use the store's Close.
func (s *Store) DB() *badger.DB {
	return s.db
}
