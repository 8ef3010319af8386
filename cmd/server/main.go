// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/geodex/internal/api"
	"github.com/tomtom215/geodex/internal/collection"
	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/gateway"
	"github.com/tomtom215/geodex/internal/logging"
	"github.com/tomtom215/geodex/internal/notify"
	"github.com/tomtom215/geodex/internal/outbox"
	"github.com/tomtom215/geodex/internal/store"
	"github.com/tomtom215/geodex/internal/supervisor"
	"github.com/tomtom215/geodex/internal/supervisor/services"
	ws "github.com/tomtom215/geodex/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Geodex with supervisor tree")

	// Log configuration status - show remote status based on Enabled flag
	if cfg.Remote.Enabled {
		logging.Info().
			Str("remote_url", cfg.Remote.URL).
			Str("store_path", cfg.Store.Path).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("remote_enabled", false).
			Str("store_path", cfg.Store.Path).
			Msg("Configuration loaded (offline mode)")
	}

	// Open the local store. Open loads the persisted snapshot, so every
	// collection is servable before anything else starts.
	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// The outbox shares the store's BadgerDB so a mutation and its outbox
	// entry commit in one transaction.
	queue := outbox.New(st.DB(), cfg.Outbox)
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing outbox")
		}
	}()

	// Initialize the remote gateway with a circuit breaker for fault
	// tolerance. The breaker prevents hammering an unreachable remote.
	// Remote sync is OPTIONAL - Geodex works fully offline without it;
	// collects queue in the outbox until a remote is configured.
	var remote gateway.Remote
	var breaker *gateway.CircuitBreakerClient
	if cfg.Remote.Enabled {
		client := gateway.NewClient(&cfg.Remote)
		breaker = gateway.NewCircuitBreakerClient(client, &cfg.Remote)
		remote = breaker

		pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout)
		if err := remote.Ping(pingCtx); err != nil {
			logging.Warn().Err(err).Msg("Failed to reach remote (outbox will retry)")
		} else {
			logging.Info().Msg("Connected to remote successfully")
		}
		pingCancel()
	} else {
		logging.Info().Msg("Remote sync disabled - running offline only")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process change event broker. Passing nil lets it fall back to
	// watermill's quiet standard logger.
	broker := notify.NewBroker(nil)
	defer func() {
		if err := broker.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notify broker")
		}
	}()

	// Create WebSocket hub for real-time updates and the feed that bridges
	// broker events onto it.
	wsHub := ws.NewHub()
	feed := ws.NewChangeFeed(wsHub, broker)

	// The reconciler only exists when a remote is configured; session
	// starts degrade to local-only without it.
	var reconciler *collection.Reconciler
	if remote != nil {
		reconciler = collection.NewReconciler(st, remote, broker, cfg.Sync.ReconcileTimeout)
	}

	service := collection.NewService(st, queue, broker, reconciler)

	handler := api.NewHandler(service, st, queue, remote, breaker, wsHub, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
		logging.Warn().Msg("This should only be used for local development and CI!")
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Data layer services
	if remote != nil {
		worker := outbox.NewWorker(queue, remote, st)
		tree.AddDataService(services.NewOutboxWorkerService(worker))
		logging.Info().Msg("Outbox retry worker added to supervisor tree")
	}
	if !cfg.Store.InMemory {
		// In-memory stores have no value log to compact
		tree.AddDataService(services.NewStoreGCService(st, cfg.Store.GCInterval))
		logging.Info().Dur("interval", cfg.Store.GCInterval).Msg("Store GC loop added to supervisor tree")
	}

	// Messaging layer services
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewChangeFeedService(feed))
	logging.Info().Msg("WebSocket hub and change feed added to supervisor tree")

	if remote != nil && cfg.Sync.Interval > 0 {
		// A fresh boot is the likeliest moment for local and remote state
		// to have diverged, so the loop sweeps once on startup.
		tree.AddMessagingService(services.NewReconcileLoopService(st, reconciler, services.ReconcileLoopConfig{
			Interval:           cfg.Sync.Interval,
			ReconcileOnStartup: true,
		}))
		logging.Info().Dur("interval", cfg.Sync.Interval).Msg("Periodic reconcile loop added to supervisor tree")
	}

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
