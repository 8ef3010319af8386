// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package store provides the durable local cache of collected item records.

The store holds every user's records in memory, indexed by user and then by
item, and persists the full working set to BadgerDB as a single versioned
snapshot. Mutations are applied in memory first (local-first); callers persist
with SaveAll after each committed mutation. The store is the sole authority
for records in a pending sync state and a read-through cache for synced ones.

# Persistence Model

The entire working set serializes to one snapshot value under a fixed key:

	collection:snapshot

The payload is a versioned envelope:

	{
	  "schema_version": 1,
	  "saved_at": "2026-08-25T10:00:00Z",
	  "items": [ ...CollectedItem records... ]
	}

Decoding is an explicit versioned step:

  - Version 1 (current): envelope as above.
  - Version 0 (legacy): payload is a bare JSON array of records.
  - Per-field defaults are applied to every decoded record (see
    models.CollectedItem.Normalize): nil media slices become empty, remote
    refs longer than local refs are truncated back into alignment, and a
    missing or unknown sync state becomes pending_update so the record is
    re-pushed rather than silently trusted.
  - Records without both a user ID and an item ID cannot be indexed and are
    dropped with a warning.

A payload that decodes under no known version is corrupt state: the store
clears the payload, records a corruption metric, logs, and starts empty.
Corruption is never surfaced as an error to callers.

# Concurrency

All exported methods are safe for concurrent use. An RWMutex guards the
in-memory index; snapshot writes are serialized so a slower persist can never
overwrite a newer one. SaveAll marshals under a read lock and commits in a
single Badger transaction, so a snapshot is atomic from the reader's
perspective: it either fully lands or the previous one remains.

# Sync States

Records move through three states:

	none ──Collect──▶ pending_create ──confirm/reconcile──▶ synced
	synced ──mutation──▶ pending_update ──confirm/reconcile──▶ synced

Mutating a record that is already pending leaves its state alone; a pending
create stays a create until the remote has seen the record. Push failures park
records in their pending state indefinitely — the outbox retry worker owns
making them synced.

# Usage

	st, err := store.Open(cfg.Store)
	if err != nil {
	    return err
	}
	defer st.Close()

	created := st.Collect("user-1", "item-42", time.Now().UTC())
	if err := st.SaveAll(ctx); err != nil {
	    logging.Error().Err(err).Msg("snapshot persist failed")
	}

# See Also

  - internal/models: CollectedItem and its invariants
  - internal/collection: the orchestrating service and reconciler
  - internal/outbox: durable push queue that flips records to synced
*/
package store
