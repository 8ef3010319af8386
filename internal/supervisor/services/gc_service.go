// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
	"time"

	"github.com/tomtom215/geodex/internal/logging"
)

// GCRunner triggers one value-log garbage collection pass.
// Satisfied by *store.Store.
type GCRunner interface {
	RunGC() error
}

// StoreGCService periodically runs BadgerDB value-log garbage collection.
//
// Badger never reclaims value-log space on its own; something has to call
// RunValueLogGC on a schedule. The store exposes that as RunGC and this
// service provides the schedule, supervised so a panic inside badger's GC
// path restarts the loop instead of silently stopping space reclamation.
type StoreGCService struct {
	store    GCRunner
	interval time.Duration
	name     string
}

// NewStoreGCService creates a new store GC service.
//
// Example usage:
//
//	svc := services.NewStoreGCService(st, cfg.Store.GCInterval)
//	tree.AddDataService(svc)
func NewStoreGCService(store GCRunner, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		name:     "store-gc",
	}
}

// Serve implements suture.Service. A failed pass is logged and retried next
// tick; GC failures never warrant a restart storm.
func (s *StoreGCService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("store GC loop started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("store GC loop shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("store GC pass failed")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *StoreGCService) String() string {
	return s.name
}
