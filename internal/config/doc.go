// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

/*
Package config provides centralized configuration management for Geodex.

This package handles loading, validation, and parsing of configuration for
all application components. Configuration is layered with Koanf v2: built-in
defaults first, an optional YAML file second, environment variables last.

# Configuration Structure

The package organizes configuration into logical groups:

  - ServerConfig: HTTP server settings (host, port, timeouts, environment)
  - StoreConfig: Badger-backed local collection store
  - OutboxConfig: Persisted mutation queue and retry worker
  - RemoteConfig: Collection sync service connection and resilience settings
  - SyncConfig: Reconciliation behavior
  - APIConfig: Pagination limits
  - SecurityConfig: Rate limiting, CORS, trusted proxies
  - LoggingConfig: Log levels and output formats

# Environment Variables

Selected variables by component (each section struct documents its full set):

HTTP Server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8472)
  - HTTP_TIMEOUT: Read/write timeout (default: 30s)
  - ENVIRONMENT: development or production (default: development)

Local Store:
  - STORE_PATH: Badger data directory (default: /data/geodex/store)
  - STORE_IN_MEMORY: Disk-free mode for tests (default: false)

Outbox:
  - OUTBOX_MAX_RETRIES: Attempts before eviction (default: 10)
  - OUTBOX_RETRY_INTERVAL: Worker cadence (default: 15s)
  - OUTBOX_ENTRY_TTL: Max entry age (default: 168h)

Remote Sync:
  - REMOTE_ENABLED: Master toggle (default: false)
  - REMOTE_URL: Sync service base URL (required when enabled)
  - REMOTE_API_KEY: Credential (required when enabled)

# Usage Example

	import "github.com/tomtom215/geodex/internal/config"

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load config")
	}

	logging.Info().
	    Str("addr", cfg.Server.Addr()).
	    Str("store", cfg.Store.Path).
	    Bool("remote", cfg.Remote.Enabled).
	    Msg("Configuration loaded")

# Validation

Load() validates the merged configuration and fails fast on:

  - Missing required fields (REMOTE_URL and REMOTE_API_KEY when remote
    sync is enabled, STORE_PATH unless running in memory)
  - Numeric ranges (HTTP_PORT 1-65535, OUTBOX_MAX_RETRIES 1-50)
  - Duration sanity (retry max delay >= base delay, entry TTL >= 1h)
  - URL formats (REMOTE_URL must be a bare HTTP(S) base URL)

# Config File

For persistent settings, create a config.yaml (searched in the working
directory, then /etc/geodex/); CONFIG_PATH overrides the search:

	server:
	  port: 8472
	remote:
	  enabled: true
	  url: https://sync.example.com
	  api_key: ${REMOTE_API_KEY}
	outbox:
	  max_retries: 10

Environment variables always win over file values.

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for
concurrent access from multiple goroutines without synchronization.
*/
package config
