// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/geodex/internal/validation"
)

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
// This includes newlines, carriage returns, tabs, and other control characters that could
// allow attackers to forge log entries or corrupt log files.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		// Replace control characters (0x00-0x1F and 0x7F) with a safe representation
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes, or an APIError if validation fails.
//
// Example:
//
//	req := UpdateNotesRequest{Notes: body.Notes}
//	if apiErr := validateRequest(&req); apiErr != nil {
//	    rw.ValidationError(apiErr.Message, apiErr.Details)
//	    return
//	}
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// getIntParam extracts an integer query parameter with a default value.
// Missing or malformed values fall back to the default; range clamping is
// the caller's responsibility.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	return parseIntParam(value, defaultValue)
}

// parseIntParam parses an integer string, returning the default on failure.
func parseIntParam(value string, defaultValue int) int {
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// requireFloatParam validates and parses a required float query parameter.
func requireFloatParam(r *http.Request, name string, minVal, maxVal float64) (float64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}

	var result float64
	if _, err := fmt.Sscanf(value, "%f", &result); err != nil || result < minVal || result > maxVal {
		return 0, fmt.Errorf("invalid %s parameter (must be %.1f to %.1f)", name, minVal, maxVal)
	}

	return result, nil
}

// requireIntParam validates and parses a required integer query parameter.
// Trailing non-numeric content is rejected, so "7.5" does not parse as 7.
func requireIntParam(r *http.Request, name string, minVal, maxVal int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}

	var result int
	var extra rune
	n, err := fmt.Sscanf(value, "%d%c", &result, &extra)
	if n == 2 || (err != nil && n == 0) {
		return 0, fmt.Errorf("invalid %s parameter (must be %d to %d)", name, minVal, maxVal)
	}
	if result < minVal || result > maxVal {
		return 0, fmt.Errorf("invalid %s parameter (must be %d to %d)", name, minVal, maxVal)
	}

	return result, nil
}
