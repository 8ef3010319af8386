// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/geodex/internal/models"
)

// StartSession runs a reconciliation pass for the user starting a session.
// Without a configured remote the session starts offline: the response
// reports Reconciled false and a zero merge result. A remote fetch failure
// maps to 502; the local store is left untouched in that case.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.service.StartSession(r.Context(), req.UserID)
	if err != nil {
		rw.ExternalServiceError("remote gateway", err)
		return
	}

	rw.Success(models.StartSessionResponse{
		UserID:     req.UserID,
		Reconciled: h.remote != nil,
		Merge:      result,
	})
}

// Items returns a page of the user's collected items. The snapshot is read
// from memory and ordered by collection time, so page slices are stable
// between requests unless the collection changes.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user ID required")
		return
	}

	req := ItemsRequest{
		Limit:  getIntParam(r, "limit", h.config.API.DefaultPageSize),
		Offset: getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if req.Limit > h.config.API.MaxPageSize {
		req.Limit = h.config.API.MaxPageSize
	}

	items := h.service.Items(userID)
	total := len(items)

	start := req.Offset
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}
	page := items[start:end]

	rw.SuccessWithPagination(models.ItemsResponse{
		UserID: userID,
		Items:  page,
		Count:  len(page),
	}, &PaginationMeta{
		Total:   int64(total),
		Count:   len(page),
		Offset:  req.Offset,
		Limit:   req.Limit,
		HasMore: end < total,
	})
}

// Item returns a single collected item, or 404 if the user never collected it.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	itemID := chi.URLParam(r, "itemID")
	if userID == "" || itemID == "" {
		rw.BadRequest("user ID and item ID required")
		return
	}

	item, ok := h.service.Item(userID, itemID)
	if !ok {
		rw.NotFound("item not collected by user")
		return
	}

	rw.Success(item)
}

// Collect marks an item collected. Collecting an already-collected item is
// idempotent: the existing record comes back with 200 instead of 201.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	itemID := chi.URLParam(r, "itemID")
	if userID == "" || itemID == "" {
		rw.BadRequest("user ID and item ID required")
		return
	}

	item, created := h.service.Collect(r.Context(), userID, itemID)
	if created {
		rw.Created(item)
		return
	}
	rw.Success(item)
}

// UpdateNotes replaces the notes on a collected item.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	itemID := chi.URLParam(r, "itemID")
	if userID == "" || itemID == "" {
		rw.BadRequest("user ID and item ID required")
		return
	}

	var req UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	item, ok := h.service.UpdateNotes(r.Context(), userID, itemID, req.Notes)
	if !ok {
		rw.NotFound("item not collected by user")
		return
	}

	rw.Success(item)
}

// AddMedia attaches a media reference to a collected item.
func (h *Handler) AddMedia(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	itemID := chi.URLParam(r, "itemID")
	if userID == "" || itemID == "" {
		rw.BadRequest("user ID and item ID required")
		return
	}

	var req AddMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	item, ok := h.service.AddMedia(r.Context(), userID, itemID, req.LocalRef, req.RemoteRef)
	if !ok {
		rw.NotFound("item not collected by user")
		return
	}

	rw.Success(item)
}

// RemoveMedia detaches a media reference from a collected item. The response
// is 404 both when the item does not exist and when the reference is not
// attached to it.
func (h *Handler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	itemID := chi.URLParam(r, "itemID")
	localRef := chi.URLParam(r, "localRef")
	if userID == "" || itemID == "" || localRef == "" {
		rw.BadRequest("user ID, item ID, and media reference required")
		return
	}

	item, ok := h.service.RemoveMedia(r.Context(), userID, itemID, localRef)
	if !ok {
		rw.NotFound("item or media reference not found")
		return
	}

	rw.Success(item)
}

// ResetAll clears the user's collection. Resetting an empty collection is
// idempotent and still succeeds, so the remote delete-all propagates even
// when issued twice.
func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user ID required")
		return
	}

	h.service.ResetAll(r.Context(), userID)

	rw.Success(map[string]string{
		"message": "collection reset",
		"user_id": userID,
	})
}
