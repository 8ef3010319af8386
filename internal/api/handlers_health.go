// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"net/http"

	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/models"
)

// Health reports overall system health. The status is "healthy" whenever the
// local store is open; a configured remote that is unreachable degrades the
// status but never fails the request, because local operation continues.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeOpen := h.storeOpen()
	remoteHealthy := h.remote != nil && h.remote.Ping(r.Context()) == nil

	// Mode: offline (no remote configured) or connected. Offline is a fully
	// supported deployment, not a degraded one.
	mode := "offline"
	if h.remote != nil {
		mode = "connected"
	}

	status := "healthy"
	if !storeOpen {
		status = "degraded"
	} else if h.remote != nil && !remoteHealthy {
		status = "degraded"
	}

	var pending int64
	if h.queue != nil {
		stats, err := h.queue.Stats(r.Context())
		if err != nil {
			logging.Warn().Err(err).Msg("Health check could not read outbox stats")
		} else {
			pending = stats.Pending
		}
	}

	circuitState := ""
	if h.breaker != nil {
		circuitState = h.breaker.State().String()
	}

	listeners := 0
	if h.wsHub != nil {
		listeners = h.wsHub.ClientCount()
	}

	rw.Success(models.HealthStatus{
		Status:         status,
		Mode:           mode,
		Version:        serverVersion,
		StoreOpen:      storeOpen,
		RemoteHealthy:  remoteHealthy,
		CircuitState:   circuitState,
		OutboxPending:  pending,
		EventListeners: listeners,
		Uptime:         h.uptime(),
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": h.uptime(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Readiness gates on the local store and outbox only: an unreachable remote
// is a normal operating condition and must not take the service out of
// rotation.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeOpen := h.storeOpen()

	outboxReachable := false
	if h.queue != nil {
		_, err := h.queue.Stats(r.Context())
		outboxReachable = err == nil
	}

	ready := storeOpen && outboxReachable

	data := map[string]interface{}{
		"store_open":       storeOpen,
		"outbox_reachable": outboxReachable,
		"ready_to_serve":   ready,
		"uptime":           h.uptime(),
	}

	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "service not ready", data)
		return
	}

	rw.Success(data)
}

// OutboxStats returns delivery statistics for the pending-mutation outbox:
// pending and confirmed counts, a per-operation breakdown, the oldest
// pending timestamp, and lifetime counters.
func (h *Handler) OutboxStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.queue == nil {
		rw.ServiceUnavailable("outbox not available")
		return
	}

	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}

	rw.Success(stats)
}

// storeOpen reports whether the local store is usable.
func (h *Handler) storeOpen() bool {
	return h.store != nil && h.store.DB() != nil && !h.store.DB().IsClosed()
}
