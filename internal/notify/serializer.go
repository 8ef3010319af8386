// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package notify

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geodex/internal/models"
)

// Serializer handles change-event encoding for broker messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an event to JSON bytes. Events with an unknown change
// type are rejected before they reach a subscriber.
func (s *Serializer) Marshal(event *models.ChangeEvent) ([]byte, error) {
	if !event.Type.Valid() {
		return nil, fmt.Errorf("invalid change type %q", event.Type)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON bytes back to an event.
func (s *Serializer) Unmarshal(data []byte) (*models.ChangeEvent, error) {
	var event models.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
