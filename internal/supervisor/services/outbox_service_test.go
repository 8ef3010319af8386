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

// mockOutboxWorker is a test double for the StartStopWorker interface.
type mockOutboxWorker struct {
	started    atomic.Bool
	stopped    atomic.Bool
	startError error
}

func (m *mockOutboxWorker) Start(ctx context.Context) error {
	if m.startError != nil {
		return m.startError
	}
	m.started.Store(true)
	return nil
}

func (m *mockOutboxWorker) Stop() {
	m.stopped.Store(true)
}

func TestOutboxWorkerService_Interface(t *testing.T) {
	// Verify OutboxWorkerService implements suture.Service
	var _ suture.Service = (*OutboxWorkerService)(nil)
}

func TestNewOutboxWorkerService(t *testing.T) {
	worker := &mockOutboxWorker{}
	svc := NewOutboxWorkerService(worker)

	if svc == nil {
		t.Fatal("NewOutboxWorkerService returned nil")
	}
	if svc.worker != worker {
		t.Error("worker not assigned correctly")
	}
	if svc.name != "outbox-worker" {
		t.Errorf("expected name 'outbox-worker', got %q", svc.name)
	}
}

func TestOutboxWorkerService_Serve(t *testing.T) {
	t.Run("starts underlying worker", func(t *testing.T) {
		worker := &mockOutboxWorker{}
		svc := NewOutboxWorkerService(worker)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		// Wait for start with polling (more reliable in CI under load)
		var started bool
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if worker.started.Load() {
				started = true
				break
			}
		}
		if !started {
			t.Error("worker was not started")
		}

		<-done
	})

	t.Run("stops worker on context cancellation", func(t *testing.T) {
		worker := &mockOutboxWorker{}
		svc := NewOutboxWorkerService(worker)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if worker.started.Load() {
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
			t.Error("service did not stop in time")
		}

		if !worker.stopped.Load() {
			t.Error("worker was not stopped")
		}
	})

	t.Run("propagates start error for restart", func(t *testing.T) {
		expectedErr := errors.New("outbox store closed")
		worker := &mockOutboxWorker{startError: expectedErr}
		svc := NewOutboxWorkerService(worker)

		err := svc.Serve(context.Background())
		if err == nil {
			t.Fatal("expected error to be propagated")
		}
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error wrapping %v, got %v", expectedErr, err)
		}
		if worker.stopped.Load() {
			t.Error("Stop should not be called when Start fails")
		}
	})
}

func TestOutboxWorkerService_String(t *testing.T) {
	svc := NewOutboxWorkerService(&mockOutboxWorker{})

	if svc.String() != "outbox-worker" {
		t.Errorf("expected 'outbox-worker', got %q", svc.String())
	}
}

func TestOutboxWorkerService_WithSupervisor(t *testing.T) {
	worker := &mockOutboxWorker{}
	svc := NewOutboxWorkerService(worker)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	var started bool
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		if worker.started.Load() {
			started = true
			break
		}
	}
	if !started {
		t.Error("worker was not started under supervision")
	}

	cancel()
	<-errCh

	if !worker.stopped.Load() {
		t.Error("worker was not stopped on supervisor shutdown")
	}
}
