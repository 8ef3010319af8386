// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package logging provides centralized zerolog-based structured logging for Geodex.
//
// This package implements a unified logging layer using zerolog, providing
// zero-allocation structured JSON logging for production and human-readable
// console output for development.
//
// # Overview
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output format for production (machine-parseable)
//   - Console output format for development (human-readable)
//   - Context-aware logging with correlation ID propagation
//   - slog adapter for Suture v4 integration
//   - Redaction helpers so remote credentials never reach log output
//
// # Quick Start
//
//	import "github.com/tomtom215/geodex/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("user_id", userID).Msg("Reconciliation complete")
//	logging.Error().Err(err).Str("item_id", itemID).Msg("Collect failed")
//
//	// Context-aware logging
//	logging.Ctx(ctx).Info().Int("pending", n).Msg("Outbox drained")
//
// # Configuration
//
// Logging is configured from the application config file and environment
// (see internal/config). Programmatic configuration:
//
//	logging.Init(logging.Config{
//	    Level:     "debug",    // trace, debug, info, warn, error, fatal
//	    Format:    "console",  // json or console
//	    Caller:    true,       // Include caller info
//	    Timestamp: true,       // Include timestamps
//	    Output:    os.Stderr,  // Output writer
//	})
//
// # Structured Logging Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	// Good - structured, searchable, efficient
//	logging.Info().
//	    Str("user_id", userID).
//	    Int("count", itemCount).
//	    Dur("elapsed", duration).
//	    Msg("Items reconciled")
//
//	// Avoid - unstructured, harder to parse
//	logging.Info().Msgf("User %s reconciled %d items in %v", userID, itemCount, duration)
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	outboxLogger := logging.WithComponent("outbox")
//	outboxLogger.Info().Msg("Retry worker started")
//
// # Context-Aware Logging
//
// Correlation and request IDs attached to a context by the HTTP middleware
// flow into every log statement made with that context:
//
//	logging.Ctx(ctx).Info().Msg("Processing request")
//
// # slog Adapter
//
// The package provides an slog adapter for libraries that require
// *slog.Logger (the supervision tree uses it for sutureslog):
//
//	slogger := logging.NewSlogLogger()
//
// # Redaction
//
// Remote API credentials must never appear in logs. Use the redaction
// helpers when logging values that may embed secrets:
//
//	logging.Error().
//	    Str("url", logging.RedactURL(reqURL)).
//	    Str("error", logging.RedactError(err)).
//	    Msg("Remote call failed")
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
//
// # See Also
//
//   - github.com/rs/zerolog: Underlying logging library
//   - internal/middleware: Request ID middleware for correlation
package logging
