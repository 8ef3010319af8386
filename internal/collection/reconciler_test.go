// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package collection

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/geodex/internal/models"
	"github.com/tomtom215/geodex/internal/store"
)

// stubRemote serves a canned snapshot for FetchCollectedItems. The push
// methods are inert; reconciliation never calls them.
type stubRemote struct {
	items    []models.CollectedItem
	fetchErr error
	fetches  int
}

func (s *stubRemote) Ping(context.Context) error { return nil }

func (s *stubRemote) FetchCollectedItems(_ context.Context, _ string) ([]models.CollectedItem, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]models.CollectedItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubRemote) SaveCollectedItem(context.Context, string, models.CollectedItem) error {
	return nil
}
func (s *stubRemote) UpdateNotes(context.Context, string, string, string) error   { return nil }
func (s *stubRemote) UpdateMedia(context.Context, string, string, []string, []string) error {
	return nil
}
func (s *stubRemote) DeleteAllCollectedItems(context.Context, string) error { return nil }
func (s *stubRemote) DeleteMediaAsset(context.Context, string) error        { return nil }

func remoteItem(userID, itemID, notes string) models.CollectedItem {
	return models.CollectedItem{
		UserID:          userID,
		ItemID:          itemID,
		CollectedAt:     time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Notes:           notes,
		LocalMediaRefs:  []string{},
		RemoteMediaRefs: []string{},
		SyncState:       models.SyncStateSynced,
	}
}

func seedSynced(ctx context.Context, t *testing.T, st *store.Store, userID string, items ...models.CollectedItem) {
	t.Helper()
	if err := st.ReplaceUser(ctx, userID, items); err != nil {
		t.Fatalf("ReplaceUser: %v", err)
	}
}

func TestReconciler_Reconcile_NonDestructiveMerge(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	rec := &eventRecorder{}

	// user-1 holds two pending records; user-2 holds one synced record.
	st.Collect("user-1", "item-a", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	st.Collect("user-1", "item-b", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	seedSynced(ctx, t, st, "user-2", remoteItem("user-2", "item-c", "untouchable"))

	remote := &stubRemote{items: []models.CollectedItem{
		remoteItem("user-1", "item-a", "remote wrote this"),
	}}
	r := NewReconciler(st, remote, rec, time.Minute)

	result, err := r.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := models.MergeResult{Fetched: 1, Overwritten: 1, PreservedPending: 1}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}

	a, ok := st.Get("user-1", "item-a")
	if !ok {
		t.Fatal("item-a missing after reconcile")
	}
	if a.SyncState != models.SyncStateSynced || a.Notes != "remote wrote this" {
		t.Errorf("item-a = %+v, want remote fields and synced", a)
	}
	if !a.CollectedAt.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Errorf("item-a CollectedAt = %v, want the remote's timestamp", a.CollectedAt)
	}

	b, ok := st.Get("user-1", "item-b")
	if !ok {
		t.Fatal("pending item-b dropped by reconcile")
	}
	if b.SyncState != models.SyncStatePendingCreate {
		t.Errorf("item-b SyncState = %q, want pending_create", b.SyncState)
	}

	c, ok := st.Get("user-2", "item-c")
	if !ok || c.Notes != "untouchable" {
		t.Errorf("user-2 record touched: (%+v, %v)", c, ok)
	}

	events := rec.all()
	if len(events) != 1 || events[0].Type != models.ChangeReconciled {
		t.Fatalf("events = %+v, want one reconciled", events)
	}
	if events[0].UserID != "user-1" || events[0].ItemID != "" || events[0].Item != nil {
		t.Errorf("reconciled event = %+v", events[0])
	}
}

func TestReconciler_Reconcile_InsertsRemoteOnly(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	remote := &stubRemote{items: []models.CollectedItem{
		remoteItem("user-1", "item-x", ""),
		remoteItem("user-1", "item-y", ""),
	}}
	r := NewReconciler(st, remote, nil, 0)

	result, err := r.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := models.MergeResult{Fetched: 2, Inserted: 2}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}

	items := st.Snapshot("user-1")
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.SyncState != models.SyncStateSynced {
			t.Errorf("%s SyncState = %q, want synced", it.ItemID, it.SyncState)
		}
	}
}

func TestReconciler_Reconcile_DropsSyncedAbsent(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seedSynced(ctx, t, st, "user-1", remoteItem("user-1", "item-gone", "deleted remotely"))

	r := NewReconciler(st, &stubRemote{}, nil, 0)

	result, err := r.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := models.MergeResult{Dropped: 1}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if !result.Changed() {
		t.Error("Changed() = false for a dropping pass")
	}
	if items := st.Snapshot("user-1"); len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}

func TestReconciler_Reconcile_FetchFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	rec := &eventRecorder{}

	st.Collect("user-1", "item-a", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err := st.SaveAll(ctx); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	before := st.Snapshot("user-1")

	fetchErr := errors.New("remote unreachable")
	r := NewReconciler(st, &stubRemote{fetchErr: fetchErr}, rec, time.Minute)

	_, err := r.Reconcile(ctx, "user-1")
	if !errors.Is(err, fetchErr) {
		t.Fatalf("Reconcile error = %v, want wrapped fetch error", err)
	}

	after := st.Snapshot("user-1")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("store changed on fetch failure:\nbefore %+v\nafter  %+v", before, after)
	}
	if events := rec.all(); len(events) != 0 {
		t.Errorf("events = %d, want 0 on failure", len(events))
	}
}

func TestReconciler_Reconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	remote := &stubRemote{items: []models.CollectedItem{
		remoteItem("user-1", "item-a", "stable"),
	}}
	r := NewReconciler(st, remote, nil, 0)

	if _, err := r.Reconcile(ctx, "user-1"); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	first := st.Snapshot("user-1")

	result, err := r.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	want := models.MergeResult{Fetched: 1, Overwritten: 1}
	if result != want {
		t.Errorf("second result = %+v, want %+v", result, want)
	}
	if second := st.Snapshot("user-1"); !reflect.DeepEqual(first, second) {
		t.Errorf("store drifted between passes:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestReconciler_Reconcile_NormalizesRemoteRecords(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	// The remote answer is content-authoritative but not trusted for
	// hygiene: foreign user ID, nil slices, misaligned refs, no item ID.
	remote := &stubRemote{items: []models.CollectedItem{
		{
			UserID:          "someone-else",
			ItemID:          "item-a",
			CollectedAt:     time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
			RemoteMediaRefs: []string{"remote/orphan.jpg"},
			SyncState:       models.SyncState("imaginary"),
		},
		{UserID: "user-1"},
	}}
	r := NewReconciler(st, remote, nil, 0)

	result, err := r.Reconcile(ctx, "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Fetched != 2 || result.Inserted != 1 {
		t.Errorf("result = %+v, want Fetched 2 Inserted 1", result)
	}

	a, ok := st.Get("user-1", "item-a")
	if !ok {
		t.Fatal("item-a missing")
	}
	if a.UserID != "user-1" {
		t.Errorf("UserID = %q, want forced to the reconciled user", a.UserID)
	}
	if a.SyncState != models.SyncStateSynced {
		t.Errorf("SyncState = %q, want synced", a.SyncState)
	}
	if a.LocalMediaRefs == nil || len(a.RemoteMediaRefs) != 0 {
		t.Errorf("media refs = %v / %v, want empty aligned slices", a.LocalMediaRefs, a.RemoteMediaRefs)
	}
}

func TestService_StartSession_RunsReconcile(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	rec := &eventRecorder{}
	remote := &stubRemote{items: []models.CollectedItem{
		remoteItem("user-1", "item-a", "from remote"),
	}}

	r := NewReconciler(st, remote, rec, time.Minute)
	svc := NewService(st, nil, rec, r)

	result, err := svc.StartSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if result.Fetched != 1 || result.Inserted != 1 {
		t.Errorf("result = %+v", result)
	}
	if remote.fetches != 1 {
		t.Errorf("fetches = %d, want 1", remote.fetches)
	}
	if !svc.IsCollected("user-1", "item-a") {
		t.Error("reconciled item not visible through the service")
	}

	events := rec.all()
	if len(events) != 1 || events[0].Type != models.ChangeReconciled {
		t.Errorf("events = %+v, want one reconciled", events)
	}
}
