// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package collection orchestrates the offline-first collection workflow.

Two components live here. Service is the thin front door the API layer calls:
every mutation commits to the local store first, flushes the snapshot, enqueues
a durable outbox entry for remote propagation, and publishes a change event for
in-process subscribers. Reconciler merges the remote's view of one user's
collection into the local store at session start.

# Local-First Contract

Mutations are synchronous on the caller's goroutine and visible immediately.
Everything downstream of the local commit is fail-soft: a snapshot flush
failure, an outbox enqueue failure, or an event publish failure is logged and
counted but never rolls the mutation back and never surfaces to the caller.
The outbox retry worker owns eventual remote convergence.

	API mutation ──▶ store (commit) ──▶ SaveAll ──▶ outbox ──▶ change event
	                      │
	                      └── caller returns here; the rest never fails it

# Reconciliation

Reconcile is remote-authoritative for records the remote knows and preserving
for records it does not:

  - local record matched by the remote: replaced in full, synced
  - local-only record still pending: preserved unchanged
  - local-only record already synced: dropped (the remote deleted it)
  - remote-only record: inserted, synced

A fetch failure returns an error and leaves the store byte-for-byte unchanged.
Passes are serialized and idempotent; one reconciled event is published per
successful pass regardless of how many records moved.

# See Also

  - internal/store: the durable local cache mutations commit to
  - internal/outbox: the durable push queue and its retry worker
  - internal/notify: the change event broker subscribers attach to
*/
package collection
