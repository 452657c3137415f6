// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package models

import "time"

// Journey is the traveler's currently tracked trip, owned exclusively by one
// identity. A journey is created (reset to active) by a start operation and
// cleared by a stop operation or by an "I'm okay" response once a deviation
// has been detected; the engine never creates one on its own.
//
// Invariant: DeviationAlertTime is non-nil iff DeviationAlertSent is true.
type Journey struct {
	IsActive bool     `json:"is_active"`
	From     Waypoint `json:"from"`
	To       Waypoint `json:"to"`

	// SelectedRoutePath is the precomputed route polyline, supplied
	// externally as an ordered waypoint sequence. May be empty, in which
	// case deviation checks are a no-op.
	SelectedRoutePath []Coordinate `json:"selected_route_path,omitempty"`

	DeviationDetected  bool       `json:"deviation_detected"`
	DeviationAlertSent bool       `json:"deviation_alert_sent"`
	DeviationAlertTime *time.Time `json:"deviation_alert_time,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}

// Reset clears all journey fields back to the inactive state.
func (j *Journey) Reset() {
	*j = Journey{}
}

// ClearDeviation clears the deviation flags, returning an active journey to
// its on-route state. Used when the traveler confirms they are okay.
func (j *Journey) ClearDeviation() {
	j.DeviationDetected = false
	j.DeviationAlertSent = false
	j.DeviationAlertTime = nil
}
