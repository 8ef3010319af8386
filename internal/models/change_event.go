// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package models provides data structures for the Geodex application.
// This file contains change-notification events emitted by the collection
// service after committed mutations and reconciliation passes.
package models

import (
	"time"
)

// ChangeType classifies a collection change event.
type ChangeType string

// Change event types. One event is published per committed local mutation;
// a reconciliation pass publishes a single reconciled event regardless of
// how many records it touched.
const (
	ChangeCollected    ChangeType = "collected"
	ChangeNotesUpdated ChangeType = "notes_updated"
	ChangeMediaAdded   ChangeType = "media_added"
	ChangeMediaRemoved ChangeType = "media_removed"
	ChangeReset        ChangeType = "reset"
	ChangeReconciled   ChangeType = "reconciled"
)

// Valid checks whether t is a recognized change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeCollected, ChangeNotesUpdated, ChangeMediaAdded,
		ChangeMediaRemoved, ChangeReset, ChangeReconciled:
		return true
	}
	return false
}

// ChangeEvent describes one committed change to the local collection.
//
// Events are published after the store has durably applied the mutation, so
// a subscriber that re-reads the store on receipt always observes the change.
// ItemID and Item are empty for reset and reconciled events, which describe
// whole-collection transitions.
type ChangeEvent struct {
	Type      ChangeType     `json:"type"`
	UserID    string         `json:"user_id"`
	ItemID    string         `json:"item_id,omitempty"`
	Item      *CollectedItem `json:"item,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
