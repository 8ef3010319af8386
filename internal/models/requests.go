// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package models provides data structures for the Geodex application.
// This file contains API request bodies and their validation rules.
package models

// SessionStartRequest asks the service to reconcile a user's local
// collection against the remote before the client starts reading it.
type SessionStartRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=128"`
}

// CollectRequest marks an item as collected for a user. The identifiers
// travel in the URL; the body only carries optional notes captured at
// collection time.
type CollectRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=10000"`
}

// UpdateNotesRequest replaces the notes on an existing collected item.
// An empty string clears the notes, so the field itself is not required.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// AddMediaRequest attaches a media reference to a collected item.
// RemoteRef may be empty while the upload is still outstanding; it can only
// be supplied when every earlier local ref already has a remote counterpart,
// keeping the two lists index-aligned.
type AddMediaRequest struct {
	LocalRef  string `json:"local_ref" validate:"required,min=1,max=1024"`
	RemoteRef string `json:"remote_ref,omitempty" validate:"max=1024"`
}
