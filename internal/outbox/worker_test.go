// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/models"
)

// fakeRemote implements gateway.Remote for worker tests. failuresLeft > 0
// fails that many calls; -1 fails every call.
type fakeRemote struct {
	mu           sync.Mutex
	failuresLeft int
	err          error

	calls         map[string]int
	savedItems    []models.CollectedItem
	notes         string
	localRefs     []string
	remoteRefs    []string
	deletedAssets []string
	resetUsers    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls: make(map[string]int),
		err:   errors.New("remote unavailable"),
	}
}

// failing reports whether this call should fail. Caller holds mu.
func (f *fakeRemote) failing() bool {
	if f.failuresLeft == 0 {
		return false
	}
	if f.failuresLeft > 0 {
		f.failuresLeft--
	}
	return true
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ping"]++
	if f.failing() {
		return f.err
	}
	return nil
}

func (f *fakeRemote) FetchCollectedItems(_ context.Context, userID string) ([]models.CollectedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["fetch_items"]++
	if f.failing() {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeRemote) SaveCollectedItem(_ context.Context, userID string, item models.CollectedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpSaveItem]++
	if f.failing() {
		return f.err
	}
	f.savedItems = append(f.savedItems, item)
	return nil
}

func (f *fakeRemote) UpdateNotes(_ context.Context, userID, itemID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpUpdateNotes]++
	if f.failing() {
		return f.err
	}
	f.notes = notes
	return nil
}

func (f *fakeRemote) UpdateMedia(_ context.Context, userID, itemID string, localRefs, remoteRefs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpUpdateMedia]++
	if f.failing() {
		return f.err
	}
	f.localRefs = append([]string(nil), localRefs...)
	f.remoteRefs = append([]string(nil), remoteRefs...)
	return nil
}

func (f *fakeRemote) DeleteAllCollectedItems(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpDeleteAll]++
	if f.failing() {
		return f.err
	}
	f.resetUsers = append(f.resetUsers, userID)
	return nil
}

func (f *fakeRemote) DeleteMediaAsset(_ context.Context, remoteRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpDeleteMediaAsset]++
	if f.failing() {
		return f.err
	}
	f.deletedAssets = append(f.deletedAssets, remoteRef)
	return nil
}

// fakeMarker records MarkSynced calls as "user/item" strings.
type fakeMarker struct {
	mu    sync.Mutex
	calls []string
}

func (m *fakeMarker) MarkSynced(_ context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID+"/"+itemID)
	return nil
}

func (m *fakeMarker) synced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// fastWorkerConfig keeps ticks and backoff tight so drain tests finish in
// milliseconds.
func fastWorkerConfig() config.OutboxConfig {
	return config.OutboxConfig{
		MaxRetries:     5,
		RetryInterval:  10 * time.Millisecond,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  50 * time.Millisecond,
		LeaseDuration:  time.Minute,
		EntryTTL:       time.Hour,
		BatchSize:      16,
	}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func pendingEmpty(ctx context.Context, ob *Outbox) func() bool {
	return func() bool {
		entries, err := ob.GetPending(ctx, 0)
		return err == nil && len(entries) == 0
	}
}

func TestWorker_StartStop(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	w := NewWorker(ob, newFakeRemote(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !w.IsRunning() {
		t.Error("worker should be running after Start")
	}

	// Second Start is a no-op.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	w.Stop()
	if w.IsRunning() {
		t.Error("worker should not be running after Stop")
	}

	// Second Stop is a no-op.
	w.Stop()
}

func TestWorker_ConcurrentStartStop(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	w := NewWorker(ob, newFakeRemote(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const goroutines = 8
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := w.Start(ctx); err != nil {
					t.Errorf("Start failed: %v", err)
				}
				time.Sleep(time.Millisecond)
				w.Stop()
			}
		}()
	}
	wg.Wait()
	// Should not panic or deadlock.
}

func TestWorker_PushesPendingEntry(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	remote := newFakeRemote()
	marker := &fakeMarker{}
	w := NewWorker(ob, remote, marker)

	ctx := context.Background()
	enqueueSaveItem(ctx, t, ob, "user-1", "item-a")

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitUntil(t, 3*time.Second, pendingEmpty(ctx, ob), "entry should drain")

	if got := remote.count(OpSaveItem); got != 1 {
		t.Errorf("save_item calls = %d, want 1", got)
	}

	stats, err := ob.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Confirmed != 1 {
		t.Errorf("confirmed = %d, want 1", stats.Confirmed)
	}

	waitUntil(t, time.Second, func() bool {
		return len(marker.synced()) == 1
	}, "item should be marked synced")
	if synced := marker.synced(); synced[0] != "user-1/item-a" {
		t.Errorf("marked synced = %q, want user-1/item-a", synced[0])
	}
}

func TestWorker_RetriesAfterFailure(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	remote := newFakeRemote()
	remote.failuresLeft = 1
	w := NewWorker(ob, remote, nil)

	ctx := context.Background()
	enqueueSaveItem(ctx, t, ob, "user-1", "item-a")

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitUntil(t, 3*time.Second, pendingEmpty(ctx, ob), "entry should drain after retry")

	if got := remote.count(OpSaveItem); got != 2 {
		t.Errorf("save_item calls = %d, want 2 (one failure, one success)", got)
	}

	stats, err := ob.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Confirmed != 1 {
		t.Errorf("confirmed = %d, want 1", stats.Confirmed)
	}
}

func TestWorker_EvictsAfterMaxRetries(t *testing.T) {
	cfg := fastWorkerConfig()
	cfg.MaxRetries = 2
	ob := New(openTestDB(t), cfg)
	remote := newFakeRemote()
	remote.failuresLeft = -1 // always fail
	w := NewWorker(ob, remote, nil)

	ctx := context.Background()
	enqueueSaveItem(ctx, t, ob, "user-1", "item-a")

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitUntil(t, 3*time.Second, pendingEmpty(ctx, ob), "entry should be evicted")

	if got := remote.count(OpSaveItem); got != 2 {
		t.Errorf("save_item calls = %d, want exactly MaxRetries (2)", got)
	}

	stats, err := ob.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Confirmed != 0 {
		t.Errorf("confirmed = %d, want 0 for an exhausted entry", stats.Confirmed)
	}
}

func TestWorker_EvictsExpiredEntry(t *testing.T) {
	cfg := fastWorkerConfig()
	cfg.EntryTTL = 20 * time.Millisecond
	ob := New(openTestDB(t), cfg)
	remote := newFakeRemote()
	w := NewWorker(ob, remote, nil)

	ctx := context.Background()
	enqueueSaveItem(ctx, t, ob, "user-1", "item-a")

	// Let the entry age past its TTL before the worker ever sees it.
	time.Sleep(40 * time.Millisecond)

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitUntil(t, 3*time.Second, pendingEmpty(ctx, ob), "expired entry should be removed")

	if got := remote.count(OpSaveItem); got != 0 {
		t.Errorf("save_item calls = %d, want 0 for an expired entry", got)
	}
}

func TestWorker_DispatchesAllOps(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	remote := newFakeRemote()
	marker := &fakeMarker{}
	w := NewWorker(ob, remote, marker)

	ctx := context.Background()

	enqueueSaveItem(ctx, t, ob, "user-1", "item-a")
	mustEnqueue(t, ob, Mutation{
		Op: OpUpdateNotes, UserID: "user-1", ItemID: "item-a",
		Payload: NotesPayload{Notes: "rare pressing"},
	})
	mustEnqueue(t, ob, Mutation{
		Op: OpUpdateMedia, UserID: "user-1", ItemID: "item-a",
		Payload: MediaPayload{
			LocalMediaRefs:  []string{"local/a.jpg"},
			RemoteMediaRefs: []string{"remote/a.jpg"},
		},
	})
	mustEnqueue(t, ob, Mutation{Op: OpDeleteAll, UserID: "user-2"})
	mustEnqueue(t, ob, Mutation{
		Op: OpDeleteMediaAsset, UserID: "user-1", ItemID: "item-a",
		Payload: MediaAssetPayload{RemoteRef: "remote/old.jpg"},
	})

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitUntil(t, 3*time.Second, pendingEmpty(ctx, ob), "all ops should drain")

	for _, op := range []string{OpSaveItem, OpUpdateNotes, OpUpdateMedia, OpDeleteAll, OpDeleteMediaAsset} {
		if got := remote.count(op); got != 1 {
			t.Errorf("%s calls = %d, want 1", op, got)
		}
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.notes != "rare pressing" {
		t.Errorf("pushed notes = %q, want %q", remote.notes, "rare pressing")
	}
	if len(remote.localRefs) != 1 || remote.localRefs[0] != "local/a.jpg" {
		t.Errorf("pushed local refs = %v, want [local/a.jpg]", remote.localRefs)
	}
	if len(remote.deletedAssets) != 1 || remote.deletedAssets[0] != "remote/old.jpg" {
		t.Errorf("deleted assets = %v, want [remote/old.jpg]", remote.deletedAssets)
	}
	if len(remote.resetUsers) != 1 || remote.resetUsers[0] != "user-2" {
		t.Errorf("reset users = %v, want [user-2]", remote.resetUsers)
	}

	// Deletions carry no item state, so only the three item ops mark synced.
	synced := marker.synced()
	if len(synced) != 3 {
		t.Errorf("synced items = %v, want 3 entries for the item ops", synced)
	}
	for _, s := range synced {
		if s != "user-1/item-a" {
			t.Errorf("synced = %q, want user-1/item-a", s)
		}
	}
}

func TestWorker_Backoff(t *testing.T) {
	cfg := fastWorkerConfig()
	cfg.RetryBaseDelay = time.Second
	cfg.RetryMaxDelay = 5 * time.Minute
	ob := New(openTestDB(t), cfg)
	w := NewWorker(ob, newFakeRemote(), nil)

	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{"zero attempts", 0, time.Second},
		{"one attempt", 1, 2 * time.Second},
		{"three attempts", 3, 8 * time.Second},
		{"past the cap", 10, 5 * time.Minute},
		{"overflow guard", 64, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.backoff(tt.attempts); got != tt.want {
				t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}

func TestWorker_ReadyForRetry(t *testing.T) {
	ob := New(openTestDB(t), fastWorkerConfig())
	w := NewWorker(ob, newFakeRemote(), nil)

	fresh := &Entry{Attempts: 0}
	if !w.readyForRetry(fresh) {
		t.Error("an entry never attempted should be ready")
	}

	justFailed := &Entry{Attempts: 3, LastAttemptAt: time.Now()}
	if w.readyForRetry(justFailed) {
		t.Error("an entry inside its backoff window should not be ready")
	}

	cooledDown := &Entry{Attempts: 3, LastAttemptAt: time.Now().Add(-time.Minute)}
	if !w.readyForRetry(cooledDown) {
		t.Error("an entry past its backoff window should be ready")
	}
}

func mustEnqueue(t *testing.T, ob *Outbox, m Mutation) string {
	t.Helper()
	id, err := ob.Enqueue(context.Background(), m)
	if err != nil {
		t.Fatalf("Enqueue(%s) failed: %v", m.Op, err)
	}
	return id
}
