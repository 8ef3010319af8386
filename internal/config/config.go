// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment
// variables and config files.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Store: Badger-backed local collection store
//     - Outbox: Persisted mutation queue and retry worker
//     - Server: HTTP server configuration (port, host, timeouts)
//
//  2. Remote:
//     - Remote: Collection sync service connection (URL, credentials,
//       rate limits, circuit breaker thresholds)
//     - Sync: Reconciliation behavior
//
//  3. API & Security:
//     - API: Pagination and response limits
//     - Security: Rate limiting, CORS, trusted proxies
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Outbox   OutboxConfig   `koanf:"outbox"`
	Remote   RemoteConfig   `koanf:"remote"`
	Sync     SyncConfig     `koanf:"sync"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8472)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - SHUTDOWN_TIMEOUT: Graceful shutdown drain window (default: 15s)
//   - ENVIRONMENT: development or production (default: development)
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// StoreConfig holds the Badger-backed local store settings.
//
// Environment Variables:
//   - STORE_PATH: Badger data directory (default: /data/geodex/store)
//   - STORE_IN_MEMORY: Run Badger without disk persistence, for tests (default: false)
//   - STORE_GC_INTERVAL: Value-log GC cadence (default: 10m)
//   - STORE_GC_DISCARD_RATIO: Value-log GC rewrite threshold (default: 0.5)
type StoreConfig struct {
	Path           string        `koanf:"path"`
	InMemory       bool          `koanf:"in_memory"`
	GCInterval     time.Duration `koanf:"gc_interval"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio"`
}

// OutboxConfig holds the persisted outbox and retry worker settings.
//
// Retry delay grows exponentially per entry: base * 2^attempts, capped at
// max. Entries that exhaust MaxRetries or outlive EntryTTL are evicted.
//
// Environment Variables:
//   - OUTBOX_MAX_RETRIES: Attempts before an entry is dropped (default: 10)
//   - OUTBOX_RETRY_INTERVAL: Worker wake-up cadence (default: 15s)
//   - OUTBOX_RETRY_BASE_DELAY: First backoff step (default: 2s)
//   - OUTBOX_RETRY_MAX_DELAY: Backoff cap (default: 5m)
//   - OUTBOX_LEASE_DURATION: Claim window per delivery attempt (default: 1m)
//   - OUTBOX_ENTRY_TTL: Max age before eviction (default: 168h)
//   - OUTBOX_BATCH_SIZE: Entries claimed per worker pass (default: 64)
type OutboxConfig struct {
	MaxRetries     int           `koanf:"max_retries"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`
	LeaseDuration  time.Duration `koanf:"lease_duration"`
	EntryTTL       time.Duration `koanf:"entry_ttl"`
	BatchSize      int           `koanf:"batch_size"`
}

// RemoteConfig holds the collection sync service connection settings.
//
// When disabled, the application runs fully offline: mutations accumulate
// in the outbox and reconciliation is skipped.
//
// Environment Variables:
//   - REMOTE_ENABLED: Master toggle for remote sync (default: false)
//   - REMOTE_URL: Base URL of the sync service
//   - REMOTE_API_KEY: Credential sent as X-Api-Key
//   - REMOTE_TIMEOUT: Per-request timeout (default: 30s)
//   - REMOTE_RATE_LIMIT_RPS: Outbound requests per second (default: 10)
//   - REMOTE_RATE_LIMIT_BURST: Burst allowance (default: 20)
//   - REMOTE_BREAKER_MAX_REQUESTS: Half-open probe budget (default: 3)
//   - REMOTE_BREAKER_INTERVAL: Closed-state counter reset (default: 60s)
//   - REMOTE_BREAKER_TIMEOUT: Open-state cool-down (default: 30s)
//   - REMOTE_BREAKER_FAILURES: Consecutive failures to trip (default: 5)
type RemoteConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	APIKey         string        `koanf:"api_key"`
	Timeout        time.Duration `koanf:"timeout"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`

	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerFailures    uint32        `koanf:"breaker_failures"`
}

// SyncConfig holds reconciliation behavior settings.
//
// Environment Variables:
//   - SYNC_RECONCILE_TIMEOUT: Budget for one reconciliation pass (default: 60s)
//   - SYNC_INTERVAL: Periodic background reconcile cadence, 0 disables (default: 0)
type SyncConfig struct {
	ReconcileTimeout time.Duration `koanf:"reconcile_timeout"`
	Interval         time.Duration `koanf:"interval"`
}

// APIConfig holds API behavior settings.
//
// Environment Variables:
//   - API_DEFAULT_PAGE_SIZE: Default page size for list endpoints (default: 50)
//   - API_MAX_PAGE_SIZE: Upper bound for caller-supplied page sizes (default: 500)
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds rate limiting and CORS settings.
//
// Environment Variables:
//   - RATE_LIMIT_REQUESTS: Requests per window per client (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Turn off rate limiting entirely (default: false)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - TRUSTED_PROXIES: Comma-separated proxy CIDRs for RealIP (default: none)
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration with layered sources (defaults, optional YAML
// file, environment variables) and validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
