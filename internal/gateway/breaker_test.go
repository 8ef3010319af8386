// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/models"
)

// stubRemote counts calls and fails on demand.
type stubRemote struct {
	calls int64
	err   error
	items []models.CollectedItem
}

func (s *stubRemote) Ping(ctx context.Context) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) FetchCollectedItems(ctx context.Context, userID string) ([]models.CollectedItem, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *stubRemote) SaveCollectedItem(ctx context.Context, userID string, item models.CollectedItem) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) UpdateNotes(ctx context.Context, userID, itemID, notes string) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) UpdateMedia(ctx context.Context, userID, itemID string, localRefs, remoteRefs []string) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) DeleteAllCollectedItems(ctx context.Context, userID string) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) DeleteMediaAsset(ctx context.Context, remoteRef string) error {
	atomic.AddInt64(&s.calls, 1)
	return s.err
}

func (s *stubRemote) callCount() int64 {
	return atomic.LoadInt64(&s.calls)
}

func breakerConfig(failures uint32) *config.RemoteConfig {
	return &config.RemoteConfig{
		BreakerMaxRequests: 1,
		BreakerInterval:    time.Minute,
		BreakerTimeout:     time.Minute,
		BreakerFailures:    failures,
	}
}

func TestCircuitBreakerClient_PassThrough(t *testing.T) {
	stub := &stubRemote{
		items: []models.CollectedItem{
			{UserID: "u", ItemID: "i", SyncState: models.SyncStateSynced},
		},
	}
	cbc := NewCircuitBreakerClient(stub, breakerConfig(5))

	items, err := cbc.FetchCollectedItems(context.Background(), "u")
	if err != nil {
		t.Fatalf("FetchCollectedItems() error = %v", err)
	}
	if len(items) != 1 || items[0].ItemID != "i" {
		t.Errorf("items = %+v", items)
	}

	if err := cbc.SaveCollectedItem(context.Background(), "u", items[0]); err != nil {
		t.Errorf("SaveCollectedItem() error = %v", err)
	}
	if err := cbc.UpdateNotes(context.Background(), "u", "i", "n"); err != nil {
		t.Errorf("UpdateNotes() error = %v", err)
	}
	if err := cbc.DeleteMediaAsset(context.Background(), "remote/a.jpg"); err != nil {
		t.Errorf("DeleteMediaAsset() error = %v", err)
	}
}

func TestCircuitBreakerClient_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubRemote{err: errors.New("remote down")}
	cbc := NewCircuitBreakerClient(stub, breakerConfig(2))

	// First two calls reach the remote and fail.
	for i := 0; i < 2; i++ {
		if err := cbc.Ping(context.Background()); err == nil {
			t.Fatalf("Ping() call %d expected error", i+1)
		}
	}
	if got := stub.callCount(); got != 2 {
		t.Fatalf("remote saw %d calls, want 2", got)
	}
	if state := cbc.State(); state != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", state)
	}

	// Third call is rejected without hitting the remote.
	err := cbc.Ping(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Ping() error = %v, want ErrOpenState", err)
	}
	if got := stub.callCount(); got != 2 {
		t.Errorf("remote saw %d calls after open, want still 2", got)
	}
}

func TestCircuitBreakerClient_ErrorsPropagate(t *testing.T) {
	wantErr := errors.New("save rejected")
	stub := &stubRemote{err: wantErr}
	cbc := NewCircuitBreakerClient(stub, breakerConfig(10))

	item := models.CollectedItem{UserID: "u", ItemID: "i"}
	if err := cbc.SaveCollectedItem(context.Background(), "u", item); !errors.Is(err, wantErr) {
		t.Errorf("SaveCollectedItem() error = %v, want %v", err, wantErr)
	}

	if _, err := cbc.FetchCollectedItems(context.Background(), "u"); !errors.Is(err, wantErr) {
		t.Errorf("FetchCollectedItems() error = %v, want %v", err, wantErr)
	}
}

func TestCircuitBreakerClient_InitialStateClosed(t *testing.T) {
	cbc := NewCircuitBreakerClient(&stubRemote{}, breakerConfig(5))
	if state := cbc.State(); state != gobreaker.StateClosed {
		t.Errorf("initial state = %v, want closed", state)
	}
}

func TestCastResult(t *testing.T) {
	t.Run("typed value passes through", func(t *testing.T) {
		items := []models.CollectedItem{{ItemID: "i"}}
		got, err := castResult[[]models.CollectedItem](interface{}(items), nil)
		if err != nil {
			t.Fatalf("castResult() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("got %d items, want 1", len(got))
		}
	})

	t.Run("error short-circuits", func(t *testing.T) {
		wantErr := errors.New("boom")
		_, err := castResult[[]models.CollectedItem](nil, wantErr)
		if !errors.Is(err, wantErr) {
			t.Errorf("castResult() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("type mismatch reported", func(t *testing.T) {
		_, err := castResult[[]models.CollectedItem]("not a slice", nil)
		if err == nil {
			t.Fatal("castResult() expected type mismatch error")
		}
	})
}
