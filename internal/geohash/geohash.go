// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package geohash

import (
	"errors"
	"fmt"
	"math"
)

// Alphabet is the 32-symbol geohash alphabet: digits and lowercase letters
// excluding a, i, l, o. Symbol order matters — lexicographic order of encoded
// strings follows the interleaved bit order, which is what makes prefix range
// queries over a geohash-indexed field work.
const Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Precision bounds. One symbol carries 5 bits, so precision 12 resolves a
// cell of roughly 4 cm x 2 cm — beyond any practical collection use.
const (
	MinPrecision = 1
	MaxPrecision = 12

	bitsPerSymbol = 5
)

var (
	// ErrInvalidLatitude is returned when latitude is outside [-90, 90].
	ErrInvalidLatitude = errors.New("geohash: latitude out of range [-90, 90]")

	// ErrInvalidLongitude is returned when longitude is outside [-180, 180].
	ErrInvalidLongitude = errors.New("geohash: longitude out of range [-180, 180]")

	// ErrInvalidPrecision is returned when precision is outside [1, 12].
	ErrInvalidPrecision = errors.New("geohash: precision out of range [1, 12]")
)

// cellSizeMeters approximates the smaller ground dimension of one geohash
// cell per precision, indexed by precision-1. Informational only; callers use
// it to pick a precision for a desired search radius.
var cellSizeMeters = [MaxPrecision]float64{
	5000000, // 1: ~5000 km
	1000000, // 2: ~1000 km
	156000,  // 3: ~156 km
	20000,   // 4: ~20 km
	5000,    // 5: ~5 km
	1000,    // 6: ~1 km
	150,     // 7: ~150 m
	19,      // 8: ~19 m
	5,       // 9: ~5 m
	1,       // 10: ~1 m
	0.15,    // 11: ~15 cm
	0.019,   // 12: ~1.9 cm
}

// Encode returns the geohash of the coordinate at the requested precision.
//
// The encoding maintains two ranges, latitude [-90, 90] and longitude
// [-180, 180], and alternates between them starting with longitude. Each step
// compares the coordinate against the midpoint of the active range: the upper
// half emits bit 1 and becomes the new range, the lower half emits bit 0.
// A coordinate exactly on a midpoint belongs to the upper half, matching the
// half-open cells produced by every mainstream geohash implementation — the
// remote store's geohash field must agree with hashes computed elsewhere.
// Bits accumulate most-significant first, five per output symbol.
//
// Encode is pure: identical inputs always produce an identical string of
// length precision, and Encode(lat, lon, p) is a prefix of
// Encode(lat, lon, p+k) for any k >= 0.
func Encode(lat, lon float64, precision int) (string, error) {
	if precision < MinPrecision || precision > MaxPrecision {
		return "", fmt.Errorf("%w: got %d", ErrInvalidPrecision, precision)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return "", fmt.Errorf("%w: got %v", ErrInvalidLatitude, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return "", fmt.Errorf("%w: got %v", ErrInvalidLongitude, lon)
	}

	var (
		out          = make([]byte, 0, precision)
		latLo, latHi = -90.0, 90.0
		lonLo, lonHi = -180.0, 180.0
		symbol       int
		bits         int
		lonTurn      = true
	)

	for len(out) < precision {
		if lonTurn {
			mid := (lonLo + lonHi) / 2
			if lon >= mid {
				symbol = symbol<<1 | 1
				lonLo = mid
			} else {
				symbol <<= 1
				lonHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat >= mid {
				symbol = symbol<<1 | 1
				latLo = mid
			} else {
				symbol <<= 1
				latHi = mid
			}
		}
		lonTurn = !lonTurn

		bits++
		if bits == bitsPerSymbol {
			out = append(out, Alphabet[symbol])
			symbol = 0
			bits = 0
		}
	}

	return string(out), nil
}

// MustEncode is Encode for known-valid inputs; it panics on error.
// Intended for constants and tests, not for request paths.
func MustEncode(lat, lon float64, precision int) string {
	h, err := Encode(lat, lon, precision)
	if err != nil {
		panic(err)
	}
	return h
}

// CellSizeHint returns the approximate ground extent, in meters, of one
// geohash cell at the given precision (the smaller of the two cell
// dimensions). Returns 0 for precision outside [MinPrecision, MaxPrecision].
//
// Reference points: 4 -> ~20 km, 5 -> ~5 km, 6 -> ~1 km, 7 -> ~150 m,
// 8 -> ~19 m.
func CellSizeHint(precision int) float64 {
	if precision < MinPrecision || precision > MaxPrecision {
		return 0
	}
	return cellSizeMeters[precision-1]
}
