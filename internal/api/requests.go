// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Request validation structs with go-playground/validator tags. Body structs
// carry json tags and are decoded directly from the request body; query-param
// structs are populated from parsed parameters before validation.
//
// The validation tags follow the go-playground/validator v10 syntax:
//   - required: field must be present and non-zero
//   - min,max: numeric or string length bounds
//   - latitude,longitude: geographic coordinate validation
//   - gte: numeric lower bound
//   - omitempty: skip validation if field is empty/zero
package api

// StartSessionRequest is the request body for POST /session/start.
// UserID identifies whose snapshot to reconcile; identifiers are opaque.
type StartSessionRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=256"`
}

// UpdateNotesRequest is the request body for PUT /users/{userID}/items/{itemID}/notes.
// Empty notes are allowed; an empty string clears the field.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// AddMediaRequest is the request body for POST /users/{userID}/items/{itemID}/media.
// RemoteRef is optional: media captured offline has no remote path until the
// outbox push uploads it.
type AddMediaRequest struct {
	LocalRef  string `json:"local_ref" validate:"required,max=512"`
	RemoteRef string `json:"remote_ref" validate:"omitempty,max=512"`
}

// SpatialEncodeRequest represents the validated query parameters for the
// /spatial/encode endpoint.
//
// Fields:
//   - Lat: Latitude coordinate (-90 to 90)
//   - Lon: Longitude coordinate (-180 to 180)
//   - Precision: Geohash length (1-12)
type SpatialEncodeRequest struct {
	Lat       float64 `validate:"latitude"`
	Lon       float64 `validate:"longitude"`
	Precision int     `validate:"min=1,max=12"`
}

// SpatialBoundsRequest represents the validated query parameters for the
// /spatial/bounds endpoint. Spans are the full viewport extent in degrees,
// centered on (Lat, Lon).
//
// Fields:
//   - Lat, Lon: Viewport center coordinates
//   - LatSpan, LonSpan: Viewport extent in degrees (non-negative)
//   - Precision: Geohash length for the range bounds (1-12)
type SpatialBoundsRequest struct {
	Lat       float64 `validate:"latitude"`
	Lon       float64 `validate:"longitude"`
	LatSpan   float64 `validate:"gte=0"`
	LonSpan   float64 `validate:"gte=0"`
	Precision int     `validate:"min=1,max=12"`
}

// ItemsRequest represents the validated query parameters for listing a
// user's collected items.
//
// Fields:
//   - Limit: Results per page (bounded by API_MAX_PAGE_SIZE)
//   - Offset: Items to skip from the start of the snapshot
type ItemsRequest struct {
	Limit  int `validate:"min=1"`
	Offset int `validate:"min=0"`
}
