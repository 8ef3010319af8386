// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package services

import (
	"context"
	"time"

	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/models"
)

// UserLister supplies the set of users with local records.
// Satisfied by *store.Store.
type UserLister interface {
	Users() []string
}

// UserReconciler merges one user's local and remote collections.
// Satisfied by *collection.Reconciler.
type UserReconciler interface {
	Reconcile(ctx context.Context, userID string) (models.MergeResult, error)
}

// ReconcileLoopConfig holds configuration for the periodic reconcile loop.
type ReconcileLoopConfig struct {
	// Interval is how often to sweep all known users. Values <= 0 fall
	// back to 15 minutes; disabling the loop entirely is main's decision
	// (it simply does not add the service).
	Interval time.Duration

	// ReconcileOnStartup triggers a full sweep when the service starts,
	// catching up users whose session never restarted after downtime.
	ReconcileOnStartup bool
}

// ReconcileLoopService periodically reconciles every known user against the
// remote. Session start already reconciles the one user signing in; this
// loop is the background catch-all for long-lived sessions that never
// restart.
//
// Per-user failures are logged and skipped, not returned: an unreachable
// remote is a normal operating condition and must not crash-loop the
// messaging layer.
type ReconcileLoopService struct {
	users      UserLister
	reconciler UserReconciler
	config     ReconcileLoopConfig
	name       string
}

// NewReconcileLoopService creates a new periodic reconcile service.
//
// Example usage:
//
//	svc := services.NewReconcileLoopService(st, reconciler, services.ReconcileLoopConfig{
//	    Interval: cfg.Sync.Interval,
//	})
//	tree.AddMessagingService(svc)
func NewReconcileLoopService(users UserLister, reconciler UserReconciler, cfg ReconcileLoopConfig) *ReconcileLoopService {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &ReconcileLoopService{
		users:      users,
		reconciler: reconciler,
		config:     cfg,
		name:       "reconcile-loop",
	}
}

// Serve implements suture.Service. It sweeps all users on each tick and
// returns ctx.Err() when canceled.
func (s *ReconcileLoopService) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.config.Interval).
		Bool("on_startup", s.config.ReconcileOnStartup).
		Msg("reconcile loop started")

	if s.config.ReconcileOnStartup {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("reconcile loop shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep reconciles each known user in turn. The user list is snapshotted
// once; users created mid-sweep are picked up next tick.
func (s *ReconcileLoopService) sweep(ctx context.Context) {
	users := s.users.Users()
	if len(users) == 0 {
		return
	}

	start := time.Now()
	failed := 0

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}

		result, err := s.reconciler.Reconcile(ctx, userID)
		if err != nil {
			failed++
			logging.Warn().
				Err(err).
				Str("user_id", userID).
				Msg("periodic reconcile failed for user")
			continue
		}

		if result.Changed() {
			logging.Debug().
				Str("user_id", userID).
				Int("fetched", result.Fetched).
				Int("inserted", result.Inserted).
				Int("overwritten", result.Overwritten).
				Int("dropped", result.Dropped).
				Msg("periodic reconcile applied changes")
		}
	}

	logging.Info().
		Int("users", len(users)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("reconcile sweep complete")
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *ReconcileLoopService) String() string {
	return s.name
}
