// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package models

import (
	"testing"
	"time"
)

func TestSyncState_Valid(t *testing.T) {
	tests := []struct {
		state SyncState
		valid bool
	}{
		{SyncStatePendingCreate, true},
		{SyncStatePendingUpdate, true},
		{SyncStateSynced, true},
		{SyncState("deleted"), false},
		{SyncState(""), false},
		{SyncState("PENDING_CREATE"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Valid(); got != tt.valid {
				t.Errorf("SyncState(%q).Valid() = %v, want %v", tt.state, got, tt.valid)
			}
		})
	}
}

func TestSyncState_Pending(t *testing.T) {
	tests := []struct {
		state   SyncState
		pending bool
	}{
		{SyncStatePendingCreate, true},
		{SyncStatePendingUpdate, true},
		{SyncStateSynced, false},
		{SyncState("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Pending(); got != tt.pending {
				t.Errorf("SyncState(%q).Pending() = %v, want %v", tt.state, got, tt.pending)
			}
		})
	}
}

func TestAllSyncStates(t *testing.T) {
	states := AllSyncStates()

	if len(states) != 3 {
		t.Fatalf("AllSyncStates() returned %d states, expected 3", len(states))
	}

	for _, state := range states {
		if !state.Valid() {
			t.Errorf("AllSyncStates() returned invalid state: %s", state)
		}
	}
}

func TestCollectedItem_Clone(t *testing.T) {
	orig := &CollectedItem{
		UserID:          "user-1",
		ItemID:          "item-42",
		CollectedAt:     time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Notes:           "found near the ferry building",
		LocalMediaRefs:  []string{"local/a.jpg", "local/b.jpg"},
		RemoteMediaRefs: []string{"remote/a.jpg"},
		SyncState:       SyncStatePendingUpdate,
	}

	clone := orig.Clone()

	if clone.UserID != orig.UserID || clone.ItemID != orig.ItemID {
		t.Errorf("Clone() identity = (%s, %s), want (%s, %s)",
			clone.UserID, clone.ItemID, orig.UserID, orig.ItemID)
	}
	if !clone.CollectedAt.Equal(orig.CollectedAt) {
		t.Errorf("Clone() CollectedAt = %v, want %v", clone.CollectedAt, orig.CollectedAt)
	}

	// Mutating the clone's slices must not touch the original.
	clone.LocalMediaRefs[0] = "mutated"
	clone.RemoteMediaRefs = append(clone.RemoteMediaRefs, "remote/b.jpg")

	if orig.LocalMediaRefs[0] != "local/a.jpg" {
		t.Errorf("original LocalMediaRefs mutated through clone: %v", orig.LocalMediaRefs)
	}
	if len(orig.RemoteMediaRefs) != 1 {
		t.Errorf("original RemoteMediaRefs mutated through clone: %v", orig.RemoteMediaRefs)
	}
}

func TestCollectedItem_Clone_PreservesEmptySlices(t *testing.T) {
	rec := &CollectedItem{UserID: "u1", ItemID: "a", SyncState: SyncStateSynced}
	rec.Normalize()

	clone := rec.Clone()

	// Normalized records promise empty slices; a clone must not demote
	// them back to nil (they would marshal as null instead of []).
	if clone.LocalMediaRefs == nil {
		t.Error("Clone() LocalMediaRefs = nil, want empty slice")
	}
	if clone.RemoteMediaRefs == nil {
		t.Error("Clone() RemoteMediaRefs = nil, want empty slice")
	}
}

func TestCollectedItem_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		item       CollectedItem
		wantLocal  []string
		wantRemote []string
		wantState  SyncState
	}{
		{
			name:       "nil slices become empty",
			item:       CollectedItem{SyncState: SyncStateSynced},
			wantLocal:  []string{},
			wantRemote: []string{},
			wantState:  SyncStateSynced,
		},
		{
			name: "overlong remote refs truncated",
			item: CollectedItem{
				LocalMediaRefs:  []string{"l1"},
				RemoteMediaRefs: []string{"r1", "r2", "r3"},
				SyncState:       SyncStateSynced,
			},
			wantLocal:  []string{"l1"},
			wantRemote: []string{"r1"},
			wantState:  SyncStateSynced,
		},
		{
			name: "unknown sync state demoted to pending_update",
			item: CollectedItem{
				LocalMediaRefs:  []string{},
				RemoteMediaRefs: []string{},
				SyncState:       SyncState("archived"),
			},
			wantLocal:  []string{},
			wantRemote: []string{},
			wantState:  SyncStatePendingUpdate,
		},
		{
			name: "aligned record untouched",
			item: CollectedItem{
				LocalMediaRefs:  []string{"l1", "l2"},
				RemoteMediaRefs: []string{"r1"},
				SyncState:       SyncStatePendingCreate,
			},
			wantLocal:  []string{"l1", "l2"},
			wantRemote: []string{"r1"},
			wantState:  SyncStatePendingCreate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.item.Normalize()

			if tt.item.LocalMediaRefs == nil || tt.item.RemoteMediaRefs == nil {
				t.Fatal("Normalize() left a nil media slice")
			}
			if len(tt.item.LocalMediaRefs) != len(tt.wantLocal) {
				t.Errorf("LocalMediaRefs = %v, want %v", tt.item.LocalMediaRefs, tt.wantLocal)
			}
			if len(tt.item.RemoteMediaRefs) != len(tt.wantRemote) {
				t.Errorf("RemoteMediaRefs = %v, want %v", tt.item.RemoteMediaRefs, tt.wantRemote)
			}
			for i, ref := range tt.wantRemote {
				if tt.item.RemoteMediaRefs[i] != ref {
					t.Errorf("RemoteMediaRefs[%d] = %q, want %q", i, tt.item.RemoteMediaRefs[i], ref)
				}
			}
			if tt.item.SyncState != tt.wantState {
				t.Errorf("SyncState = %q, want %q", tt.item.SyncState, tt.wantState)
			}
		})
	}
}

func TestChangeType_Valid(t *testing.T) {
	tests := []struct {
		changeType ChangeType
		valid      bool
	}{
		{ChangeCollected, true},
		{ChangeNotesUpdated, true},
		{ChangeMediaAdded, true},
		{ChangeMediaRemoved, true},
		{ChangeReset, true},
		{ChangeReconciled, true},
		{ChangeType("deleted"), false},
		{ChangeType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.changeType), func(t *testing.T) {
			if got := tt.changeType.Valid(); got != tt.valid {
				t.Errorf("ChangeType(%q).Valid() = %v, want %v", tt.changeType, got, tt.valid)
			}
		})
	}
}

func TestMergeResult_Changed(t *testing.T) {
	tests := []struct {
		name   string
		result MergeResult
		want   bool
	}{
		{"all zero", MergeResult{}, false},
		{"fetch only", MergeResult{Fetched: 10, PreservedPending: 2}, false},
		{"overwrite", MergeResult{Overwritten: 1}, true},
		{"insert", MergeResult{Inserted: 3}, true},
		{"drop", MergeResult{Dropped: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Changed(); got != tt.want {
				t.Errorf("MergeResult.Changed() = %v, want %v", got, tt.want)
			}
		})
	}
}
