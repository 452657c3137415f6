// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package rooms

import (
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

// Pass-through events fanned out on the guardian's channel. The server adds
// no interpretation beyond validation; guardians consume them as-is.
const (
	// EventLocationUpdate carries a dependent's latest position.
	EventLocationUpdate = "child-location-update"

	// EventBatteryLevel carries a dependent's battery state.
	EventBatteryLevel = "child-battery-level"

	// EventAppState carries a dependent's app lifecycle state.
	EventAppState = "child-app-state"
)

// LocationUpdateEvent is the payload of EventLocationUpdate.
type LocationUpdateEvent struct {
	ChildID   string            `json:"child_id"`
	Location  models.Coordinate `json:"location"`
	Address   string            `json:"address,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// BatteryLevelEvent is the payload of EventBatteryLevel.
type BatteryLevelEvent struct {
	ChildID   string    `json:"child_id"`
	Level     int       `json:"level"`
	Charging  bool      `json:"charging"`
	Timestamp time.Time `json:"timestamp"`
}

// AppStateEvent is the payload of EventAppState.
type AppStateEvent struct {
	ChildID   string    `json:"child_id"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}
