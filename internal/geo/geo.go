// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package geo provides the geospatial primitives used by the journey and
// proximity engines: great-circle distance and nearest-vertex distance to a
// route polyline. All functions are pure and safe for concurrent use.
package geo

import (
	"math"

	"github.com/tomtom215/sentinel/internal/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm calculates the great-circle distance between two points using
// the haversine formula. Deterministic for in-range coordinates.
func DistanceKm(p1, p2 models.Coordinate) float64 {
	lat1Rad := p1.Latitude * math.Pi / 180.0
	lon1Rad := p1.Longitude * math.Pi / 180.0
	lat2Rad := p2.Latitude * math.Pi / 180.0
	lon2Rad := p2.Longitude * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// MinDistanceToPath returns the haversine distance from point to the nearest
// vertex of path. Returns +Inf when path is empty; callers must special-case
// that before comparing against a threshold.
//
// This is deliberately a vertex-only minimum, not a point-to-segment
// projection. Along a long straight segment with sparse vertices the
// reported distance overstates the true perpendicular distance, which makes
// the deviation threshold effectively tighter mid-segment. Route paths are
// supplied densely enough that this has not mattered in practice; switching
// to segment interpolation would change alert sensitivity and is tracked as
// an open product decision.
func MinDistanceToPath(point models.Coordinate, path []models.Coordinate) float64 {
	minDistance := math.Inf(1)
	for _, vertex := range path {
		if d := DistanceKm(point, vertex); d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}
