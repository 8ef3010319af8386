// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/geodex/internal/models"
)

// mockUserLister is a test double for the UserLister interface.
type mockUserLister struct {
	users []string
}

func (m *mockUserLister) Users() []string {
	return m.users
}

// mockUserReconciler is a test double for the UserReconciler interface.
// It records the order of reconcile calls and can fail specific users.
type mockUserReconciler struct {
	mu     sync.Mutex
	calls  []string
	errFor map[string]error
	result models.MergeResult
}

func (m *mockUserReconciler) Reconcile(ctx context.Context, userID string) (models.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID)
	if err := m.errFor[userID]; err != nil {
		return models.MergeResult{}, err
	}
	return m.result, nil
}

func (m *mockUserReconciler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockUserReconciler) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func TestReconcileLoopService_Interface(t *testing.T) {
	// Verify ReconcileLoopService implements suture.Service
	var _ suture.Service = (*ReconcileLoopService)(nil)
}

func TestNewReconcileLoopService(t *testing.T) {
	users := &mockUserLister{}
	rec := &mockUserReconciler{}

	t.Run("assigns dependencies and name", func(t *testing.T) {
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		if svc == nil {
			t.Fatal("NewReconcileLoopService returned nil")
		}
		if svc.users != users {
			t.Error("user lister not assigned correctly")
		}
		if svc.reconciler != rec {
			t.Error("reconciler not assigned correctly")
		}
		if svc.config.Interval != time.Hour {
			t.Errorf("expected interval 1h, got %v", svc.config.Interval)
		}
		if svc.name != "reconcile-loop" {
			t.Errorf("expected name 'reconcile-loop', got %q", svc.name)
		}
	})

	t.Run("defaults zero interval to 15 minutes", func(t *testing.T) {
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{})
		if svc.config.Interval != 15*time.Minute {
			t.Errorf("expected default interval 15m, got %v", svc.config.Interval)
		}
	})

	t.Run("defaults negative interval to 15 minutes", func(t *testing.T) {
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: -time.Minute})
		if svc.config.Interval != 15*time.Minute {
			t.Errorf("expected default interval 15m, got %v", svc.config.Interval)
		}
	})
}

func TestReconcileLoopService_Sweep(t *testing.T) {
	t.Run("reconciles every known user", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a", "user-b", "user-c"}}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		svc.sweep(context.Background())

		calls := rec.Calls()
		if len(calls) != 3 {
			t.Fatalf("expected 3 reconcile calls, got %d", len(calls))
		}
		for i, want := range []string{"user-a", "user-b", "user-c"} {
			if calls[i] != want {
				t.Errorf("call %d: expected %q, got %q", i, want, calls[i])
			}
		}
	})

	t.Run("continues past per-user failures", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a", "user-b", "user-c"}}
		rec := &mockUserReconciler{
			errFor: map[string]error{"user-b": errors.New("remote unreachable")},
		}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		svc.sweep(context.Background())

		// A failing user must not stop the sweep for the rest
		if rec.CallCount() != 3 {
			t.Errorf("expected 3 reconcile attempts, got %d", rec.CallCount())
		}
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a", "user-b"}}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc.sweep(ctx)

		if rec.CallCount() != 0 {
			t.Errorf("expected 0 reconcile calls after cancellation, got %d", rec.CallCount())
		}
	})

	t.Run("no-ops on empty user list", func(t *testing.T) {
		users := &mockUserLister{}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		svc.sweep(context.Background())

		if rec.CallCount() != 0 {
			t.Errorf("expected 0 reconcile calls, got %d", rec.CallCount())
		}
	})
}

func TestReconcileLoopService_Serve(t *testing.T) {
	t.Run("sweeps on startup when configured", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a", "user-b"}}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{
			Interval:           time.Hour,
			ReconcileOnStartup: true,
		})

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		// Wait for the startup sweep with polling (more reliable in CI under load)
		var swept bool
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if rec.CallCount() == 2 {
				swept = true
				break
			}
		}
		if !swept {
			t.Errorf("expected startup sweep to reconcile 2 users, got %d calls", rec.CallCount())
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
	})

	t.Run("sweeps on each tick", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a"}}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: 25 * time.Millisecond})

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		// One user per sweep, so the call count equals completed sweeps
		var ticked bool
		for i := 0; i < 40; i++ {
			time.Sleep(25 * time.Millisecond)
			if rec.CallCount() >= 2 {
				ticked = true
				break
			}
		}
		cancel()
		<-done

		if !ticked {
			t.Errorf("expected at least 2 sweeps, got %d", rec.CallCount())
		}
	})

	t.Run("no startup sweep by default", func(t *testing.T) {
		users := &mockUserLister{users: []string{"user-a"}}
		rec := &mockUserReconciler{}
		svc := NewReconcileLoopService(users, rec, ReconcileLoopConfig{Interval: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		time.Sleep(60 * time.Millisecond)
		cancel()
		<-done

		if rec.CallCount() != 0 {
			t.Errorf("expected 0 reconcile calls before first tick, got %d", rec.CallCount())
		}
	})
}

func TestReconcileLoopService_String(t *testing.T) {
	svc := NewReconcileLoopService(&mockUserLister{}, &mockUserReconciler{}, ReconcileLoopConfig{})

	if svc.String() != "reconcile-loop" {
		t.Errorf("expected 'reconcile-loop', got %q", svc.String())
	}
}
