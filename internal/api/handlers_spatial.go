// Geodex - Offline-First Collection Tracking and Geospatial Indexing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geodex

package api

import (
	"net/http"

	"github.com/tomtom215/geodex/internal/geohash"
	"github.com/tomtom215/geodex/internal/models"
	"github.com/tomtom215/geodex/internal/spatial"
)

// SpatialEncode turns a coordinate into a geohash at the requested precision.
// All three parameters are required; the encoding is pure, so the endpoint
// works identically online and offline.
func (h *Handler) SpatialEncode(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	lat, err := requireFloatParam(r, "lat", -90, 90)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	lon, err := requireFloatParam(r, "lon", -180, 180)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	precision, err := requireIntParam(r, "precision", geohash.MinPrecision, geohash.MaxPrecision)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	// Struct validation for consistency with the body-carrying endpoints.
	req := SpatialEncodeRequest{Lat: lat, Lon: lon, Precision: precision}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	hash, err := geohash.Encode(lat, lon, precision)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	rw.Success(models.EncodeResponse{
		Geohash:        hash,
		Lat:            lat,
		Lon:            lon,
		Precision:      precision,
		CellSizeMeters: geohash.CellSizeHint(precision),
	})
}

// SpatialBounds computes the geohash range covering a rectangular viewport.
// The range is half-open (MinHash <= hash < MaxHash) and over-approximates
// the viewport; callers post-filter candidates by true distance.
func (h *Handler) SpatialBounds(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	lat, err := requireFloatParam(r, "lat", -90, 90)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	lon, err := requireFloatParam(r, "lon", -180, 180)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	latSpan, err := requireFloatParam(r, "lat_span", 0, 180)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	lonSpan, err := requireFloatParam(r, "lon_span", 0, 360)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	precision, err := requireIntParam(r, "precision", geohash.MinPrecision, geohash.MaxPrecision)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	req := SpatialBoundsRequest{Lat: lat, Lon: lon, LatSpan: latSpan, LonSpan: lonSpan, Precision: precision}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	rng, err := spatial.Bounds(lat, lon, latSpan, lonSpan, precision)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	rw.Success(models.BoundsResponse{
		MinHash:   rng.MinHash,
		MaxHash:   rng.MaxHash,
		Precision: precision,
	})
}
