// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateOutbox(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateServer validates HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

// validateStore validates the local store settings.
func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.GCInterval <= 0 {
		return fmt.Errorf("STORE_GC_INTERVAL must be positive, got %v", c.Store.GCInterval)
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return fmt.Errorf("STORE_GC_DISCARD_RATIO must be in (0, 1), got %v", c.Store.GCDiscardRatio)
	}
	return nil
}

// Outbox limit constants.
const (
	outboxMaxRetryCeiling = 50
	outboxMinEntryTTL     = time.Hour
	outboxMaxBatchSize    = 1024
)

// validateOutbox validates the outbox retry settings.
func (c *Config) validateOutbox() error {
	if c.Outbox.MaxRetries < 1 || c.Outbox.MaxRetries > outboxMaxRetryCeiling {
		return fmt.Errorf("OUTBOX_MAX_RETRIES must be between 1 and %d, got %d",
			outboxMaxRetryCeiling, c.Outbox.MaxRetries)
	}
	if c.Outbox.RetryInterval <= 0 {
		return fmt.Errorf("OUTBOX_RETRY_INTERVAL must be positive, got %v", c.Outbox.RetryInterval)
	}
	if c.Outbox.RetryBaseDelay <= 0 {
		return fmt.Errorf("OUTBOX_RETRY_BASE_DELAY must be positive, got %v", c.Outbox.RetryBaseDelay)
	}
	if c.Outbox.RetryMaxDelay < c.Outbox.RetryBaseDelay {
		return fmt.Errorf("OUTBOX_RETRY_MAX_DELAY (%v) must be >= OUTBOX_RETRY_BASE_DELAY (%v)",
			c.Outbox.RetryMaxDelay, c.Outbox.RetryBaseDelay)
	}
	if c.Outbox.LeaseDuration <= 0 {
		return fmt.Errorf("OUTBOX_LEASE_DURATION must be positive, got %v", c.Outbox.LeaseDuration)
	}
	if c.Outbox.EntryTTL < outboxMinEntryTTL {
		return fmt.Errorf("OUTBOX_ENTRY_TTL must be at least %v, got %v",
			outboxMinEntryTTL, c.Outbox.EntryTTL)
	}
	if c.Outbox.BatchSize < 1 || c.Outbox.BatchSize > outboxMaxBatchSize {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be between 1 and %d, got %d",
			outboxMaxBatchSize, c.Outbox.BatchSize)
	}
	return nil
}

// validateRemote validates remote sync settings (only if enabled).
func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil // Remote sync is optional - offline-only mode needs no validation
	}

	if c.Remote.URL == "" {
		return fmt.Errorf("REMOTE_URL is required when REMOTE_ENABLED=true")
	}
	if err := validateHTTPURL(c.Remote.URL, "REMOTE_URL"); err != nil {
		return fmt.Errorf("REMOTE_URL is invalid: %w", err)
	}
	if c.Remote.APIKey == "" {
		return fmt.Errorf("REMOTE_API_KEY is required when REMOTE_ENABLED=true")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive, got %v", c.Remote.Timeout)
	}
	if c.Remote.RateLimitRPS <= 0 {
		return fmt.Errorf("REMOTE_RATE_LIMIT_RPS must be positive, got %v", c.Remote.RateLimitRPS)
	}
	if c.Remote.RateLimitBurst < 1 {
		return fmt.Errorf("REMOTE_RATE_LIMIT_BURST must be at least 1, got %d", c.Remote.RateLimitBurst)
	}
	return c.validateBreaker()
}

// validateBreaker validates circuit breaker thresholds.
func (c *Config) validateBreaker() error {
	if c.Remote.BreakerMaxRequests < 1 {
		return fmt.Errorf("REMOTE_BREAKER_MAX_REQUESTS must be at least 1, got %d",
			c.Remote.BreakerMaxRequests)
	}
	if c.Remote.BreakerInterval <= 0 {
		return fmt.Errorf("REMOTE_BREAKER_INTERVAL must be positive, got %v", c.Remote.BreakerInterval)
	}
	if c.Remote.BreakerTimeout <= 0 {
		return fmt.Errorf("REMOTE_BREAKER_TIMEOUT must be positive, got %v", c.Remote.BreakerTimeout)
	}
	if c.Remote.BreakerFailures < 1 {
		return fmt.Errorf("REMOTE_BREAKER_FAILURES must be at least 1, got %d", c.Remote.BreakerFailures)
	}
	return nil
}

// validateSync validates reconciliation settings.
func (c *Config) validateSync() error {
	if c.Sync.ReconcileTimeout <= 0 {
		return fmt.Errorf("SYNC_RECONCILE_TIMEOUT must be positive, got %v", c.Sync.ReconcileTimeout)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("SYNC_INTERVAL must be zero or positive, got %v", c.Sync.Interval)
	}
	return nil
}

// validateAPI validates API pagination settings.
func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

// validateSecurity validates rate limiting and CORS settings.
func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q",
			c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
