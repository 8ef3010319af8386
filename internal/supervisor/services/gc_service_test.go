// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockGCRunner is a test double for the GCRunner interface.
type mockGCRunner struct {
	runErr   error
	runCount atomic.Int32
}

func (m *mockGCRunner) RunGC() error {
	m.runCount.Add(1)
	return m.runErr
}

func (m *mockGCRunner) RunCount() int {
	return int(m.runCount.Load())
}

func TestStoreGCService_Interface(t *testing.T) {
	// Verify StoreGCService implements suture.Service
	var _ suture.Service = (*StoreGCService)(nil)
}

func TestNewStoreGCService(t *testing.T) {
	store := &mockGCRunner{}

	t.Run("assigns store and interval", func(t *testing.T) {
		svc := NewStoreGCService(store, time.Hour)

		if svc == nil {
			t.Fatal("NewStoreGCService returned nil")
		}
		if svc.store != store {
			t.Error("store not assigned correctly")
		}
		if svc.interval != time.Hour {
			t.Errorf("expected interval 1h, got %v", svc.interval)
		}
		if svc.name != "store-gc" {
			t.Errorf("expected name 'store-gc', got %q", svc.name)
		}
	})

	t.Run("defaults zero interval to 10 minutes", func(t *testing.T) {
		svc := NewStoreGCService(store, 0)
		if svc.interval != 10*time.Minute {
			t.Errorf("expected default interval 10m, got %v", svc.interval)
		}
	})

	t.Run("defaults negative interval to 10 minutes", func(t *testing.T) {
		svc := NewStoreGCService(store, -time.Minute)
		if svc.interval != 10*time.Minute {
			t.Errorf("expected default interval 10m, got %v", svc.interval)
		}
	})
}

func TestStoreGCService_Serve(t *testing.T) {
	t.Run("runs GC on each tick", func(t *testing.T) {
		store := &mockGCRunner{}
		svc := NewStoreGCService(store, 20*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		var ticked bool
		for i := 0; i < 40; i++ {
			time.Sleep(20 * time.Millisecond)
			if store.RunCount() >= 2 {
				ticked = true
				break
			}
		}
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("Serve did not return after context cancellation")
		}

		if !ticked {
			t.Errorf("expected at least 2 GC passes, got %d", store.RunCount())
		}
	})

	t.Run("keeps running after a failed pass", func(t *testing.T) {
		store := &mockGCRunner{runErr: errors.New("value log GC already running")}
		svc := NewStoreGCService(store, 20*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		// A failing pass is logged and retried, never fatal
		var retried bool
		for i := 0; i < 40; i++ {
			time.Sleep(20 * time.Millisecond)
			if store.RunCount() >= 2 {
				retried = true
				break
			}
		}
		cancel()
		<-done

		if !retried {
			t.Errorf("expected GC to retry after failure, got %d passes", store.RunCount())
		}
	})

	t.Run("returns promptly when context already canceled", func(t *testing.T) {
		store := &mockGCRunner{}
		svc := NewStoreGCService(store, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := svc.Serve(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if store.RunCount() != 0 {
			t.Errorf("expected 0 GC passes, got %d", store.RunCount())
		}
	})
}

func TestStoreGCService_String(t *testing.T) {
	svc := NewStoreGCService(&mockGCRunner{}, time.Minute)

	if svc.String() != "store-gc" {
		t.Errorf("expected 'store-gc', got %q", svc.String())
	}
}

func TestStoreGCService_WithSupervisor(t *testing.T) {
	store := &mockGCRunner{}
	svc := NewStoreGCService(store, 20*time.Millisecond)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	var ran bool
	for i := 0; i < 40; i++ {
		time.Sleep(20 * time.Millisecond)
		if store.RunCount() >= 1 {
			ran = true
			break
		}
	}
	if !ran {
		t.Error("GC was not run under supervision")
	}

	cancel()
	<-errCh
}
