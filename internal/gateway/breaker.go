// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
)

// breakerName labels the remote sync breaker in logs and metrics.
const breakerName = "remote-sync"

// CircuitBreakerClient wraps a Remote with the circuit breaker pattern.
// It prevents cascading failures when the sync service is unavailable or
// slow: once the breaker opens, calls fail fast without hitting the wire,
// and the outbox keeps the mutations for replay after recovery.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. This is intentional for
// production resilience:
//   - The timing determines when to recover from failures, not data integrity
//   - Tests should mock the wrapped Remote, not the breaker
type CircuitBreakerClient struct {
	remote Remote
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps remote with a circuit breaker configured
// from cfg. Defaults when zero: 3 half-open probes, 60s closed-state
// counter reset, 30s open-state cool-down, trip after 5 consecutive
// failures.
func NewCircuitBreakerClient(remote Remote, cfg *config.RemoteConfig) *CircuitBreakerClient {
	maxRequests := cfg.BreakerMaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	interval := cfg.BreakerInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,

		// ReadyToTrip opens the circuit after the configured number of
		// consecutive failures. Consecutive (rather than ratio-based)
		// tripping suits the outbox worker's low request volume.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= failures
			if shouldTrip {
				logging.Warn().
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// OnStateChange is called whenever the circuit breaker changes state
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		remote: remote,
		cb:     cb,
		name:   breakerName,
	}
}

// State returns the current breaker state for health reporting.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// execute wraps a remote call with circuit breaker protection.
// Returns the result or an error if the circuit is open or the call fails.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Circuit is open or too many concurrent requests in half-open state
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
// Returns typed result or error if type assertion fails
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.Ping(ctx)
	})
	return err
}

// FetchCollectedItems retrieves a user's remote collection with circuit
// breaker protection.
func (cbc *CircuitBreakerClient) FetchCollectedItems(ctx context.Context, userID string) ([]models.CollectedItem, error) {
	return castResult[[]models.CollectedItem](cbc.execute(func() (interface{}, error) {
		return cbc.remote.FetchCollectedItems(ctx, userID)
	}))
}

// SaveCollectedItem upserts a record with circuit breaker protection.
func (cbc *CircuitBreakerClient) SaveCollectedItem(ctx context.Context, userID string, item models.CollectedItem) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.SaveCollectedItem(ctx, userID, item)
	})
	return err
}

// UpdateNotes replaces a record's notes with circuit breaker protection.
func (cbc *CircuitBreakerClient) UpdateNotes(ctx context.Context, userID, itemID, notes string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.UpdateNotes(ctx, userID, itemID, notes)
	})
	return err
}

// UpdateMedia replaces a record's media lists with circuit breaker protection.
func (cbc *CircuitBreakerClient) UpdateMedia(ctx context.Context, userID, itemID string, localRefs, remoteRefs []string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.UpdateMedia(ctx, userID, itemID, localRefs, remoteRefs)
	})
	return err
}

// DeleteAllCollectedItems removes a user's remote records with circuit
// breaker protection.
func (cbc *CircuitBreakerClient) DeleteAllCollectedItems(ctx context.Context, userID string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.DeleteAllCollectedItems(ctx, userID)
	})
	return err
}

// DeleteMediaAsset removes an uploaded asset with circuit breaker protection.
func (cbc *CircuitBreakerClient) DeleteMediaAsset(ctx context.Context, remoteRef string) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.remote.DeleteMediaAsset(ctx, remoteRef)
	})
	return err
}
