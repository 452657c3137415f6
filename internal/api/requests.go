// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import "github.com/tomtom215/sentinel/internal/models"

// waypointRequest is a named endpoint of a journey.
type waypointRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (w waypointRequest) toModel() models.Waypoint {
	return models.Waypoint{
		Name:       w.Name,
		Coordinate: models.Coordinate{Latitude: w.Latitude, Longitude: w.Longitude},
	}
}

// coordinateRequest is one vertex of a route path.
type coordinateRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// journeyStartRequest starts a monitored journey. The route path is the
// client's precomputed polyline; it may be empty, disabling deviation
// checks for this journey.
type journeyStartRequest struct {
	From      waypointRequest     `json:"from"`
	To        waypointRequest     `json:"to"`
	RoutePath []coordinateRequest `json:"route_path" validate:"omitempty,dive"`
}

func (j journeyStartRequest) path() []models.Coordinate {
	path := make([]models.Coordinate, len(j.RoutePath))
	for i, v := range j.RoutePath {
		path[i] = models.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude}
	}
	return path
}

// journeyRespondRequest is the traveler's answer to a deviation alert.
// Only an affirmative response is valid input.
type journeyRespondRequest struct {
	IsOkay bool `json:"is_okay"`
}

// positionRequest carries a bare coordinate, used by deviation checks.
type positionRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// locationUpdateRequest reports the identity's latest position.
type locationUpdateRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address" validate:"omitempty,max=500"`
}

// batteryRequest reports the device battery state.
type batteryRequest struct {
	Level    int  `json:"level" validate:"min=0,max=100"`
	Charging bool `json:"charging"`
}

// appStateRequest reports the app lifecycle state.
type appStateRequest struct {
	State string `json:"state" validate:"required,oneof=foreground background terminated"`
}

// sosRequest broadcasts an SOS from the sender's position.
type sosRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address" validate:"omitempty,max=500"`
}
