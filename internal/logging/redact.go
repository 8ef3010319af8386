// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package logging

import (
	"net/url"
	"strings"
)

// RedactToken masks a secret, showing only the first and last 4 characters.
// Example: "gdx_k9f2m1qz88ab" -> "gdx_...88ab"
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// RedactURL strips credentials from a URL before it is logged: userinfo is
// removed and query parameters with secret-bearing names are masked. Returns
// the input unchanged if it does not parse as a URL.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.User = nil

	q := u.Query()
	changed := false
	for key := range q {
		if sensitiveParam(key) {
			q.Set(key, "***")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// RedactError removes potentially sensitive information from error text.
// Errors mentioning credentials are replaced wholesale because the secret
// may appear anywhere in the message.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"api_key",
		"apikey",
		"bearer",
		"authorization",
		"cookie",
	}

	lower := strings.ToLower(msg)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lower, pattern) {
			return "remote request error (detail redacted)"
		}
	}

	return truncateString(msg, 200)
}

// sensitiveParam reports whether a query parameter name looks credential-bearing.
func sensitiveParam(key string) bool {
	switch strings.ToLower(key) {
	case "apikey", "api_key", "token", "access_token", "key", "secret", "password":
		return true
	}
	return false
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
