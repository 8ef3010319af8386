// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var errStubFailure = errors.New("stub service failure")

// stubService is a controllable suture.Service for exercising the tree:
// by default it runs until its context is canceled, but it can be told to
// fail a fixed number of passes first, or to return a chosen error every
// pass.
type stubService struct {
	name  string
	runs  atomic.Int32
	exits atomic.Int32
	fails atomic.Int32

	mu       sync.Mutex
	budget   int32
	serveErr error
}

func newStubService(name string) *stubService {
	return &stubService{name: name}
}

func (s *stubService) Serve(ctx context.Context) error {
	s.runs.Add(1)
	defer s.exits.Add(1)

	s.mu.Lock()
	serveErr := s.serveErr
	budget := s.budget
	s.mu.Unlock()

	if budget > 0 && s.fails.Add(1) <= budget {
		return errStubFailure
	}
	if serveErr != nil {
		return serveErr
	}

	<-ctx.Done()
	return ctx.Err()
}

// failWith makes every Serve pass return err immediately.
func (s *stubService) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveErr = err
}

// failTimes makes the next n Serve passes fail before the service settles
// into running normally.
func (s *stubService) failTimes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget = int32(n)
}

func (s *stubService) runCount() int32 {
	return s.runs.Load()
}

func (s *stubService) exitCount() int32 {
	return s.exits.Load()
}

// String identifies the service in suture's log output.
func (s *stubService) String() string {
	return s.name
}

// quietLogger keeps suture's restart chatter out of test output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
