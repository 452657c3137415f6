// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package journey

import (
	"errors"
	"time"

	"github.com/tomtom215/sentinel/internal/models"
)

// Event names published to the traveler's guardian. Journey lifecycle and
// deviation events go to the guardian's direct connection (presence lookup),
// not a room: only the immediate guardian cares.
const (
	EventJourneyStarted = "child-journey-started"
	EventJourneyStopped = "child-journey-stopped"
	EventDeviationAlert = "child-deviation-alert"
)

var (
	// ErrInvalidCoordinate is returned when a supplied coordinate is outside
	// WGS84 bounds. Rejected before any state mutation.
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	// ErrInvalidResponse is returned by RespondOkay(false). The state
	// machine defines no "not okay" transition; confirming distress belongs
	// to the SOS broadcast path.
	ErrInvalidResponse = errors.New("only an affirmative okay response is accepted")
)

// StartedEvent is the payload of EventJourneyStarted.
type StartedEvent struct {
	ChildID   string         `json:"child_id"`
	ChildName string         `json:"child_name"`
	Journey   models.Journey `json:"journey"`
}

// StoppedEvent is the payload of EventJourneyStopped.
type StoppedEvent struct {
	ChildID   string `json:"child_id"`
	ChildName string `json:"child_name"`
}

// DeviationEvent is the payload of EventDeviationAlert, sent to the guardian
// once a deviation has gone unconfirmed past the escalation window.
type DeviationEvent struct {
	ChildID    string    `json:"child_id"`
	ChildName  string    `json:"child_name"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DistanceKm float64   `json:"distance_km"`
	Timestamp  time.Time `json:"timestamp"`
}

// CheckResult reports the outcome of one deviation check. Exactly one of
// AlertSent, AlertPending, ParentAlerted is set when OnRoute is false.
type CheckResult struct {
	// OnRoute is true when the journey is inactive, has no route path, or
	// the traveler is within the deviation threshold.
	OnRoute bool `json:"on_route"`

	// DistanceFromRouteKm is the vertex-minimum distance to the route path.
	// Zero when the check was a no-op (inactive journey or empty path).
	DistanceFromRouteKm float64 `json:"distance_from_route_km"`

	// AlertSent is true on the check that first detects the deviation.
	AlertSent bool `json:"alert_sent,omitempty"`

	// AlertPending is true while an unconfirmed deviation is inside the
	// escalation window, or past it with no reachable guardian.
	AlertPending bool `json:"alert_pending,omitempty"`

	// ParentAlerted is true when the deviation was escalated to the
	// guardian's live connection on this check.
	ParentAlerted bool `json:"parent_alerted,omitempty"`
}
