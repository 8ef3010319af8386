// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package models provides data structures for the Geodex application.
// This file contains the result summary of a reconciliation pass.
package models

// MergeResult summarizes one remote-authoritative reconciliation pass for a
// single user. Counters describe what happened to that user's local records;
// other users' records are never touched by reconciliation.
type MergeResult struct {
	// Fetched is the number of records the remote returned.
	Fetched int `json:"fetched"`

	// Overwritten counts local records replaced in full by their remote
	// copy, whatever sync state they were in.
	Overwritten int `json:"overwritten"`

	// PreservedPending counts local records kept because they still carry
	// unpushed changes.
	PreservedPending int `json:"preserved_pending"`

	// Inserted counts remote records that had no local counterpart.
	Inserted int `json:"inserted"`

	// Dropped counts local synced records absent from the remote and
	// therefore removed.
	Dropped int `json:"dropped"`
}

// Changed reports whether the pass modified the local store at all.
func (r MergeResult) Changed() bool {
	return r.Overwritten > 0 || r.Inserted > 0 || r.Dropped > 0
}
