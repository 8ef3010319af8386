// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewSupervisorTree(t *testing.T) {
	t.Run("builds the layered tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("zero config gets defaults", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		want := DefaultTreeConfig()
		if tree.config.FailureThreshold != want.FailureThreshold {
			t.Errorf("FailureThreshold = %f, want %f", tree.config.FailureThreshold, want.FailureThreshold)
		}
		if tree.config.FailureDecay != want.FailureDecay {
			t.Errorf("FailureDecay = %f, want %f", tree.config.FailureDecay, want.FailureDecay)
		}
		if tree.config.FailureBackoff != want.FailureBackoff {
			t.Errorf("FailureBackoff = %v, want %v", tree.config.FailureBackoff, want.FailureBackoff)
		}
		if tree.config.ShutdownTimeout != want.ShutdownTimeout {
			t.Errorf("ShutdownTimeout = %v, want %v", tree.config.ShutdownTimeout, want.ShutdownTimeout)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("starts all layers and drains on cancel", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		tree.AddDataService(newStubService("outbox-retry"))
		tree.AddMessagingService(newStubService("ws-hub"))
		tree.AddAPIService(newStubService("http-api"))

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- tree.Serve(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}
	})

	t.Run("ServeBackground reports completion on its channel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		select {
		case err := <-tree.ServeBackground(ctx):
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}
	})
}

func TestSupervisorTreeLayers(t *testing.T) {
	layers := []struct {
		name string
		add  func(tree *SupervisorTree, svc *stubService)
	}{
		{"data", func(tree *SupervisorTree, svc *stubService) { tree.AddDataService(svc) }},
		{"messaging", func(tree *SupervisorTree, svc *stubService) { tree.AddMessagingService(svc) }},
		{"api", func(tree *SupervisorTree, svc *stubService) { tree.AddAPIService(svc) }},
	}

	for _, layer := range layers {
		t.Run(layer.name+" layer starts its services", func(t *testing.T) {
			tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

			svc := newStubService(layer.name + "-svc")
			layer.add(tree, svc)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			go tree.Serve(ctx)
			time.Sleep(100 * time.Millisecond)

			if svc.runCount() < 1 {
				t.Errorf("%s service was not started", layer.name)
			}
		})
	}
}

func TestSupervisorTreeFailureIsolation(t *testing.T) {
	t.Run("crash loop in one layer leaves the others running", func(t *testing.T) {
		tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		crashing := newStubService("crashing-feed")
		crashing.failTimes(2)
		stable := newStubService("http-api")

		tree.AddMessagingService(crashing)
		tree.AddAPIService(stable)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(200 * time.Millisecond)

		if crashing.runCount() < 3 {
			t.Errorf("expected at least 3 runs for the crashing service, got %d", crashing.runCount())
		}
		if stable.runCount() < 1 {
			t.Error("stable service was not started")
		}
	})
}

func TestDefaultTreeConfig(t *testing.T) {
	config := DefaultTreeConfig()

	if config.FailureThreshold != 5.0 {
		t.Errorf("expected FailureThreshold 5.0, got %f", config.FailureThreshold)
	}
	if config.FailureDecay != 30.0 {
		t.Errorf("expected FailureDecay 30.0, got %f", config.FailureDecay)
	}
	if config.FailureBackoff != 15*time.Second {
		t.Errorf("expected FailureBackoff 15s, got %v", config.FailureBackoff)
	}
	if config.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
	}
}
