// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package models provides data structures for the Geodex application.
// This file contains the collected-item record and its sync lifecycle.
package models

import (
	"time"
)

// SyncState represents where a collected item sits in the local/remote
// synchronization lifecycle.
type SyncState string

// Sync lifecycle states. A record is born pending_create, moves to synced
// once the remote accepts it, and drops back to pending_update whenever a
// local mutation has not yet been pushed.
const (
	SyncStatePendingCreate SyncState = "pending_create"
	SyncStatePendingUpdate SyncState = "pending_update"
	SyncStateSynced        SyncState = "synced"
)

// AllSyncStates returns all recognized sync states.
func AllSyncStates() []SyncState {
	return []SyncState{
		SyncStatePendingCreate,
		SyncStatePendingUpdate,
		SyncStateSynced,
	}
}

// Valid checks whether s is a recognized sync state.
func (s SyncState) Valid() bool {
	switch s {
	case SyncStatePendingCreate, SyncStatePendingUpdate, SyncStateSynced:
		return true
	}
	return false
}

// Pending reports whether the state still has unpushed local changes.
func (s SyncState) Pending() bool {
	return s == SyncStatePendingCreate || s == SyncStatePendingUpdate
}

// CollectedItem represents one user's claim on one collectible item.
//
// Identity is the composite key (UserID, ItemID); the local store holds at
// most one record per pair. CollectedAt is assigned when the record is
// created and never changes afterwards.
//
// Media alignment:
//   - LocalMediaRefs[i] identifies a media asset on this device
//   - RemoteMediaRefs[i], when present, is its uploaded counterpart
//   - RemoteMediaRefs is a prefix of the alignment: it is never longer
//     than LocalMediaRefs, only trailing uploads may be outstanding
type CollectedItem struct {
	// Identity
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`

	// Collection metadata
	CollectedAt time.Time `json:"collected_at"`
	Notes       string    `json:"notes"`

	// Index-aligned media references
	LocalMediaRefs  []string `json:"local_media_refs"`
	RemoteMediaRefs []string `json:"remote_media_refs"`

	// Sync lifecycle
	SyncState SyncState `json:"sync_state"`
}

// Key returns the composite identity of the record.
func (c *CollectedItem) Key() (userID, itemID string) {
	return c.UserID, c.ItemID
}

// Pending reports whether the record has local changes the remote has not
// yet acknowledged.
func (c *CollectedItem) Pending() bool {
	return c.SyncState.Pending()
}

// Clone returns a deep copy of the record. Media slices are copied so the
// clone can be mutated without aliasing the original; an empty slice stays
// empty rather than degrading to nil, so normalized records keep
// serializing as [] and not null.
func (c *CollectedItem) Clone() CollectedItem {
	out := *c
	out.LocalMediaRefs = cloneRefs(c.LocalMediaRefs)
	out.RemoteMediaRefs = cloneRefs(c.RemoteMediaRefs)
	return out
}

func cloneRefs(refs []string) []string {
	if refs == nil {
		return nil
	}
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

// Normalize repairs field-level damage on a decoded record so a single bad
// field never discards the whole item: nil media slices become empty, an
// over-long remote list is truncated to the local list's length, and an
// unrecognized sync state is demoted to pending_update so the next push
// re-asserts the record.
func (c *CollectedItem) Normalize() {
	if c.LocalMediaRefs == nil {
		c.LocalMediaRefs = []string{}
	}
	if c.RemoteMediaRefs == nil {
		c.RemoteMediaRefs = []string{}
	}
	if len(c.RemoteMediaRefs) > len(c.LocalMediaRefs) {
		c.RemoteMediaRefs = c.RemoteMediaRefs[:len(c.LocalMediaRefs)]
	}
	if !c.SyncState.Valid() {
		c.SyncState = SyncStatePendingUpdate
	}
}
