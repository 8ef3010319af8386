// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package spatial

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/geodex/internal/geohash"
	"github.com/tomtom215/geodex/internal/metrics"
)

func TestBounds_FullRangeFallback(t *testing.T) {
	// A viewport centered on the equator/prime-meridian crossing puts the
	// corners in cells with no shared prefix.
	got, err := Bounds(0, 0, 2, 2, 4)
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if got.MinHash != "0000" || got.MaxHash != "zzzz" {
		t.Errorf("Bounds = (%q, %q), want (%q, %q)", got.MinHash, got.MaxHash, "0000", "zzzz")
	}
}

func TestBounds_PadsCommonPrefix(t *testing.T) {
	// This viewport straddles the 9q8y/9q8z boundary (lat 37.793), so the
	// corners agree on three symbols only.
	got, err := Bounds(37.78, -122.6, 0.2, 0.1, 6)
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if got.MinHash != "9q8000" || got.MaxHash != "9q8zzz" {
		t.Errorf("Bounds = (%q, %q), want (%q, %q)", got.MinHash, got.MaxHash, "9q8000", "9q8zzz")
	}
}

func TestBounds_EqualLengthHashes(t *testing.T) {
	for _, p := range []int{1, 4, 8, 12} {
		got, err := Bounds(51.5074, -0.1278, 0.5, 0.5, p)
		if err != nil {
			t.Fatalf("Bounds precision %d: %v", p, err)
		}
		if len(got.MinHash) != p || len(got.MaxHash) != p {
			t.Errorf("precision %d: got lengths %d/%d", p, len(got.MinHash), len(got.MaxHash))
		}
	}
}

func TestBounds_TinyViewportSameCell(t *testing.T) {
	// Corners inside a single cell share the full-length hash. The range
	// must still be a non-empty superset of the viewport: exactly that
	// cell, with MaxHash the hash's lexicographic successor.
	center := geohash.MustEncode(37.7749, -122.4194, 5)
	got, err := Bounds(37.7749, -122.4194, 0.0001, 0.0001, 5)
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if got.MinHash != center {
		t.Errorf("MinHash = %q, want center hash %q", got.MinHash, center)
	}
	if got.MaxHash != "9q8yz" {
		t.Errorf("MaxHash = %q, want %q", got.MaxHash, "9q8yz")
	}
	if !got.Contains(center) {
		t.Errorf("range (%q, %q) does not contain its own center hash %q",
			got.MinHash, got.MaxHash, center)
	}
}

func TestBounds_TinyViewportContainsCenterEverywhere(t *testing.T) {
	// Sub-cell viewports at assorted precisions, including cells whose
	// hash ends in the alphabet's last symbol (successor must carry).
	points := []struct {
		name     string
		lat, lon float64
	}{
		{"san francisco", 37.7749, -122.4194},
		{"tokyo", 35.6895, 139.6917},
		{"nairobi", -1.2921, 36.8219},
		{"near z cell", 89.99, 179.99},
	}

	for _, pt := range points {
		for _, p := range []int{3, 5, 8} {
			r, err := Bounds(pt.lat, pt.lon, 1e-7, 1e-7, p)
			if err != nil {
				t.Fatalf("%s p%d: Bounds: %v", pt.name, p, err)
			}
			center := geohash.MustEncode(pt.lat, pt.lon, p)
			if center == strings.Repeat("z", p) {
				// The world's last cell cannot sit below any equal-length
				// exclusive upper bound; the full-range fallback applies.
				continue
			}
			if !r.Contains(center) {
				t.Errorf("%s p%d: range (%q, %q) does not contain center %q",
					pt.name, p, r.MinHash, r.MaxHash, center)
			}
		}
	}
}

func TestSuccessor(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"9q8yy", "9q8yz", true},
		{"9q8yz", "9q8z0", true},
		{"9qzzz", "9r000", true}, // carry through trailing z symbols
		{"0", "1", true},
		{"z", "", false},
		{"zzzz", "", false},
	}
	for _, tt := range tests {
		got, ok := successor(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("successor(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBounds_ContainsCenterHash(t *testing.T) {
	viewports := []struct {
		name             string
		lat, lon         float64
		latSpan, lonSpan float64
		precision        int
	}{
		{"san francisco bay", 37.78, -122.42, 0.2, 0.2, 6},
		{"greater london", 51.5, -0.12, 0.4, 0.6, 5},
		{"sydney harbour", -33.86, 151.21, 0.1, 0.1, 6},
	}

	for _, v := range viewports {
		t.Run(v.name, func(t *testing.T) {
			r, err := Bounds(v.lat, v.lon, v.latSpan, v.lonSpan, v.precision)
			if err != nil {
				t.Fatalf("Bounds: %v", err)
			}
			center := geohash.MustEncode(v.lat, v.lon, v.precision)
			if !r.Contains(center) {
				t.Errorf("range (%q, %q) does not contain center hash %q", r.MinHash, r.MaxHash, center)
			}
		})
	}
}

func TestBounds_ClampsAtPoles(t *testing.T) {
	got, err := Bounds(89.9, 0, 1, 1, 4)
	if err != nil {
		t.Fatalf("Bounds near pole: %v", err)
	}
	if len(got.MinHash) != 4 || len(got.MaxHash) != 4 {
		t.Errorf("Bounds near pole = (%q, %q), want length-4 hashes", got.MinHash, got.MaxHash)
	}
}

func TestBounds_InvalidInputs(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon         float64
		latSpan, lonSpan float64
		precision        int
		wantErr          error
	}{
		{"negative lat span", 0, 0, -1, 1, 4, ErrInvalidSpan},
		{"negative lon span", 0, 0, 1, -1, 4, ErrInvalidSpan},
		{"center latitude out of range", 95, 0, 1, 1, 4, geohash.ErrInvalidLatitude},
		{"center longitude out of range", 0, 190, 1, 1, 4, geohash.ErrInvalidLongitude},
		{"precision too high", 0, 0, 1, 1, 13, geohash.ErrInvalidPrecision},
		{"precision zero", 0, 0, 1, 1, 0, geohash.ErrInvalidPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bounds(tt.lat, tt.lon, tt.latSpan, tt.lonSpan, tt.precision)
			if err == nil {
				t.Fatal("Bounds returned nil error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Bounds error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBounds_RecordsMetrics(t *testing.T) {
	prefixBefore := testutil.ToFloat64(metrics.SpatialBoundsQueries.WithLabelValues("prefix"))
	fallbackBefore := testutil.ToFloat64(metrics.SpatialBoundsQueries.WithLabelValues("fallback"))

	if _, err := Bounds(37.78, -122.42, 0.2, 0.2, 6); err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if _, err := Bounds(0, 0, 2, 2, 4); err != nil {
		t.Fatalf("Bounds: %v", err)
	}

	if got := testutil.ToFloat64(metrics.SpatialBoundsQueries.WithLabelValues("prefix")); got != prefixBefore+1 {
		t.Errorf("prefix counter = %v, want %v", got, prefixBefore+1)
	}
	if got := testutil.ToFloat64(metrics.SpatialBoundsQueries.WithLabelValues("fallback")); got != fallbackBefore+1 {
		t.Errorf("fallback counter = %v, want %v", got, fallbackBefore+1)
	}
}

func TestBoundRange_Contains(t *testing.T) {
	r := BoundRange{MinHash: "9q8000", MaxHash: "9q8zzz"}

	tests := []struct {
		hash string
		want bool
	}{
		{"9q8000", true},  // inclusive lower bound
		{"9q8yyk", true},
		{"9q8zzz", false}, // exclusive upper bound
		{"9q7zzz", false},
		{"9q9000", false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.hash); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.hash, got, tt.want)
		}
	}
}
