// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

// Package geohash implements base32 geohash encoding of coordinates.
//
// A geohash is a short string over a 32-symbol alphabet that encodes a
// latitude/longitude pair by interleaved binary subdivision of the two
// coordinate ranges. Strings that share a prefix denote nearby cells, so a
// store indexed by geohash supports proximity lookups as plain string range
// scans. Encoding is pure and deterministic; decoding back to coordinates is
// intentionally not provided because nothing in the system consumes it.
package geohash
