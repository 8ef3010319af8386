// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package spatial

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/geodex/internal/geohash"
	"github.com/tomtom215/geodex/internal/metrics"
)

// ErrInvalidSpan is returned when a viewport span is negative or NaN.
var ErrInvalidSpan = errors.New("spatial: viewport span must be non-negative")

// BoundRange is a half-open geohash string range covering a viewport at a
// fixed precision. Callers filter with geohash >= MinHash AND geohash < MaxHash.
// Both hashes have equal length. Because a 1D prefix range only approximates a
// 2D rectangle, matches near cell edges include false positives; callers must
// post-filter by true distance.
type BoundRange struct {
	MinHash string `json:"min_hash"`
	MaxHash string `json:"max_hash"`
}

// Contains reports whether hash falls inside the half-open range.
func (r BoundRange) Contains(hash string) bool {
	return hash >= r.MinHash && hash < r.MaxHash
}

// Bounds computes the geohash range covering a rectangular viewport.
//
// The viewport's southwest corner is (centerLat - latSpan/2,
// centerLon - lonSpan/2) and its northeast corner the mirror image; corners
// are clamped to valid coordinate ranges (longitude does not wrap, so a
// viewport crossing the antimeridian degrades toward the full-range
// fallback). Both corners are encoded at precision and the longest common
// prefix of the two hashes is padded on the right: with the alphabet's first
// symbol for MinHash and its last symbol for MaxHash.
//
// When the corners share no prefix at all — the viewport straddles a major
// grid boundary — the full range (all-first-symbol, all-last-symbol) is
// returned. That is a conservative over-approximation, not a failure.
//
// A viewport smaller than one cell puts both corners in the same
// full-length hash; padding alone would collapse the half-open range to
// nothing, so the range covers exactly that cell instead: MinHash is the
// shared hash and MaxHash its lexicographic successor. The all-z hash has
// no same-length successor and degrades to the full-range fallback.
func Bounds(centerLat, centerLon, latSpan, lonSpan float64, precision int) (BoundRange, error) {
	start := time.Now()

	if math.IsNaN(latSpan) || math.IsNaN(lonSpan) || latSpan < 0 || lonSpan < 0 {
		return BoundRange{}, fmt.Errorf("%w: lat_span=%v lon_span=%v", ErrInvalidSpan, latSpan, lonSpan)
	}

	// Validates the center coordinate and the precision in one shot; corners
	// derived from a valid center are made valid by clamping below.
	if _, err := geohash.Encode(centerLat, centerLon, precision); err != nil {
		return BoundRange{}, err
	}

	swHash, err := geohash.Encode(clampLat(centerLat-latSpan/2), clampLon(centerLon-lonSpan/2), precision)
	if err != nil {
		return BoundRange{}, fmt.Errorf("spatial: encode southwest corner: %w", err)
	}
	neHash, err := geohash.Encode(clampLat(centerLat+latSpan/2), clampLon(centerLon+lonSpan/2), precision)
	if err != nil {
		return BoundRange{}, fmt.Errorf("spatial: encode northeast corner: %w", err)
	}

	prefix := commonPrefix(swHash, neHash)
	if len(prefix) == precision {
		if next, ok := successor(prefix); ok {
			metrics.RecordSpatialBounds(false, time.Since(start))
			return BoundRange{MinHash: prefix, MaxHash: next}, nil
		}
		prefix = ""
	}
	metrics.RecordSpatialBounds(len(prefix) == 0, time.Since(start))
	return BoundRange{
		MinHash: padRight(prefix, geohash.Alphabet[0], precision),
		MaxHash: padRight(prefix, geohash.Alphabet[len(geohash.Alphabet)-1], precision),
	}, nil
}

// successor returns the next geohash string of the same length in
// lexicographic order: the rightmost non-maximal symbol is bumped and
// everything after it resets to the alphabet's first symbol. Returns false
// when every position already holds the alphabet's last symbol.
func successor(hash string) (string, bool) {
	b := []byte(hash)
	for i := len(b) - 1; i >= 0; i-- {
		idx := strings.IndexByte(geohash.Alphabet, b[i])
		if idx < len(geohash.Alphabet)-1 {
			b[i] = geohash.Alphabet[idx+1]
			for j := i + 1; j < len(b); j++ {
				b[j] = geohash.Alphabet[0]
			}
			return string(b), true
		}
	}
	return "", false
}

// commonPrefix returns the longest shared leading substring of two
// equal-length strings.
func commonPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}

// padRight extends s with repetitions of pad up to length n.
func padRight(s string, pad byte, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(string(pad), n-len(s))
}

func clampLat(v float64) float64 {
	return math.Max(-90, math.Min(90, v))
}

func clampLon(v float64) float64 {
	return math.Max(-180, math.Min(180, v))
}
