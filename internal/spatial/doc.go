// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package spatial turns map viewports into geohash prefix ranges.
//
// A rectangular viewport is approximated by the longest geohash prefix shared
// by its southwest and northeast corners; padding that prefix with the first
// and last alphabet symbols yields a half-open string range usable as a
// filter against a geohash-indexed field in a remote store. The range is a
// deliberate over-approximation of the viewport — callers must post-filter
// results by true distance.
package spatial
