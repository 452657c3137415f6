// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// Coordinate is a WGS84 point. Latitude must be within [-90, 90] and
// longitude within [-180, 180]; anything outside the range is rejected at
// the API boundary before reaching the core engines.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Waypoint is a named coordinate, used for journey endpoints.
type Waypoint struct {
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

// LocationSnapshot is the latest known position of an identity.
// Last-write-wins; the core retains no history.
type LocationSnapshot struct {
	IdentityID string     `json:"identity_id"`
	Coordinate Coordinate `json:"coordinate"`
	Address    string     `json:"address,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NearbyUser is a proximity query result: an identity with a known location
// inside the requested radius, annotated with its distance from the origin.
type NearbyUser struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AccountID  string     `json:"account_id,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
	DistanceKm float64    `json:"distance_km"`
}
