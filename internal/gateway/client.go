// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/geodex/internal/config"
	"github.com/tomtom215/geodex/internal/metrics"
	"github.com/tomtom215/geodex/internal/models"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
// This prevents unbounded memory allocation when reading large error responses
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB)
// Returns the body content or a placeholder message if reading fails
// Uses io.LimitReader to prevent unbounded memory allocation
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	// If we hit the limit, indicate truncation
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client handles communication with the remote collection sync service.
//
// Features:
//   - 30-second request timeout (configurable)
//   - API key authentication via X-Api-Key header
//   - Outbound rate limiting (token bucket, golang.org/x/time/rate)
//   - Automatic retry on HTTP 429 with exponential backoff honoring
//     Retry-After (1s, 2s, 4s, 8s, 16s by default)
//   - JSON request/response bodies
//
// Thread Safety: safe for concurrent use. Each request creates its own
// HTTP request; the shared rate limiter is internally synchronized.
type Client struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int           // Maximum retries for rate limiting
	retryBaseDelay time.Duration // Base delay for exponential backoff
}

// fetchItemsResponse is the wire shape of the remote's collection listing.
type fetchItemsResponse struct {
	Items []models.CollectedItem `json:"items"`
}

// notesPayload carries a notes replacement.
type notesPayload struct {
	Notes string `json:"notes"`
}

// mediaPayload carries a full replacement of both media reference lists.
type mediaPayload struct {
	LocalMediaRefs  []string `json:"local_media_refs"`
	RemoteMediaRefs []string `json:"remote_media_refs"`
}

// NewClient creates a remote sync client from configuration.
//
// Zero or missing values fall back to production defaults: 30s timeout,
// 10 req/s with burst 20, 5 retries with a 1s backoff base.
func NewClient(cfg *config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	return &Client{
		baseURL: trimTrailingSlash(cfg.URL),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries:     5,               // Allow up to 5 retries for rate limiting
		retryBaseDelay: 1 * time.Second, // Start with 1 second, doubles each retry
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// doRequestWithBackoff performs an HTTP request with outbound rate limiting
// and automatic HTTP 429 handling. Implements exponential backoff honoring
// the Retry-After header (RFC 6585). The payload is re-sent on every
// attempt. The context is used for cancellation during backoff waits.
func (c *Client) doRequestWithBackoff(ctx context.Context, method, reqURL string, payload []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Check context before attempting request
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Local token bucket keeps us under the remote's advertised rate
		if !c.limiter.Allow() {
			metrics.RecordRemoteRateLimitWait()
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var body io.Reader = http.NoBody
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		// Success - return response
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited (HTTP 429) - close body and retry with backoff
		_ = resp.Body.Close() // Explicitly ignore error - will retry anyway

		// Last attempt - return error
		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		// Calculate exponential backoff delay: 1s, 2s, 4s, 8s, 16s
		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))

		// Check for Retry-After header (RFC 6585)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			// Try parsing as seconds (integer)
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		// Use cancellable wait instead of time.Sleep
		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// makeRequest is a generic helper that handles common request boilerplate.
// It marshals the payload, makes the request, checks HTTP status, and
// decodes the JSON response into result when result is non-nil. The op
// label is used for error messages and per-operation metrics.
func (c *Client) makeRequest(ctx context.Context, op, method, path string, payload, result interface{}) error {
	start := time.Now()
	err := c.request(ctx, op, method, path, payload, result)
	metrics.RecordRemoteRequest(op, time.Since(start), err)
	return err
}

func (c *Client) request(ctx context.Context, op, method, path string, payload, result interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
	}

	resp, err := c.doRequestWithBackoff(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to make %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody := readBodyForError(resp.Body)
		return fmt.Errorf("%s request failed with status %d: %s", op, resp.StatusCode, string(errBody))
	}

	if result == nil {
		// Drain so the underlying connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// Ping verifies connectivity to the sync service.
func (c *Client) Ping(ctx context.Context) error {
	return c.makeRequest(ctx, "ping", http.MethodGet, "/v1/ping", nil, nil)
}

// FetchCollectedItems returns the remote's view of one user's collection.
func (c *Client) FetchCollectedItems(ctx context.Context, userID string) ([]models.CollectedItem, error) {
	var out fetchItemsResponse
	path := fmt.Sprintf("/v1/users/%s/items", url.PathEscape(userID))
	if err := c.makeRequest(ctx, "fetch_items", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SaveCollectedItem upserts a full record on the remote.
func (c *Client) SaveCollectedItem(ctx context.Context, userID string, item models.CollectedItem) error {
	path := fmt.Sprintf("/v1/users/%s/items/%s", url.PathEscape(userID), url.PathEscape(item.ItemID))
	return c.makeRequest(ctx, "save_item", http.MethodPut, path, item, nil)
}

// UpdateNotes replaces the notes of an existing remote record.
func (c *Client) UpdateNotes(ctx context.Context, userID, itemID, notes string) error {
	path := fmt.Sprintf("/v1/users/%s/items/%s/notes", url.PathEscape(userID), url.PathEscape(itemID))
	return c.makeRequest(ctx, "update_notes", http.MethodPatch, path, notesPayload{Notes: notes}, nil)
}

// UpdateMedia replaces both media reference lists of a remote record.
func (c *Client) UpdateMedia(ctx context.Context, userID, itemID string, localRefs, remoteRefs []string) error {
	path := fmt.Sprintf("/v1/users/%s/items/%s/media", url.PathEscape(userID), url.PathEscape(itemID))
	payload := mediaPayload{
		LocalMediaRefs:  localRefs,
		RemoteMediaRefs: remoteRefs,
	}
	return c.makeRequest(ctx, "update_media", http.MethodPatch, path, payload, nil)
}

// DeleteAllCollectedItems removes every remote record for the user.
func (c *Client) DeleteAllCollectedItems(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/v1/users/%s/items", url.PathEscape(userID))
	return c.makeRequest(ctx, "delete_all", http.MethodDelete, path, nil, nil)
}

// DeleteMediaAsset removes one uploaded media asset by remote reference.
func (c *Client) DeleteMediaAsset(ctx context.Context, remoteRef string) error {
	path := fmt.Sprintf("/v1/media/%s", url.PathEscape(remoteRef))
	return c.makeRequest(ctx, "delete_media_asset", http.MethodDelete, path, nil, nil)
}
