// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
	"fmt"
)

// StartStopWorker interface matches the outbox worker's lifecycle.
//
// This interface abstracts the worker's Start/Stop pattern, allowing the
// OutboxWorkerService wrapper to adapt it to suture's Serve pattern without
// modifying the worker code.
//
// Satisfied by *outbox.Worker:
//   - Start(ctx context.Context) error
//   - Stop()
type StartStopWorker interface {
	Start(ctx context.Context) error
	Stop()
}

// OutboxWorkerService wraps the outbox retry worker as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin the drain loop
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
//
// The worker handles its own goroutine internally, so this wrapper simply
// orchestrates the lifecycle transitions. It belongs in the data layer: a
// worker crash never interrupts the API, it only pauses remote pushes, and
// the durable outbox entries survive the restart.
type OutboxWorkerService struct {
	worker StartStopWorker
	name   string
}

// NewOutboxWorkerService creates a new outbox worker service wrapper.
//
// Example usage:
//
//	worker := outbox.NewWorker(queue, remote, st)
//	svc := services.NewOutboxWorkerService(worker)
//	tree.AddDataService(svc)
func NewOutboxWorkerService(worker StartStopWorker) *OutboxWorkerService {
	return &OutboxWorkerService{
		worker: worker,
		name:   "outbox-worker",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts the worker (which spawns its drain goroutine)
//  2. Blocks until the context is canceled
//  3. Stops the worker (which waits for the goroutine to exit)
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *OutboxWorkerService) Serve(ctx context.Context) error {
	if err := s.worker.Start(ctx); err != nil {
		return fmt.Errorf("outbox worker start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	// Stop blocks until the drain goroutine has exited, so a restart never
	// races a previous incarnation for outbox leases.
	s.worker.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *OutboxWorkerService) String() string {
	return s.name
}
