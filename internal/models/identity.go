// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package models defines data structures shared across the Sentinel server.
// These models represent identities (guardian/dependent accounts), journeys,
// coordinates, and live location snapshots.
package models

// Identity is an authenticated account participating as traveler, guardian,
// or both. The parent/child relation forms a forest: a child has zero or one
// parent, and ParentID/ChildIDs are kept bidirectionally consistent by the
// directory that owns them. Consumers must tolerate transient asymmetry
// between the two sides while a relationship change is in flight.
type Identity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	AccountID   string   `json:"account_id,omitempty"`

	// ParentID is empty when the identity has no guardian.
	ParentID string `json:"parent_id,omitempty"`

	// ChildIDs lists dependents this identity monitors.
	ChildIDs []string `json:"child_ids,omitempty"`

	// ShareLocation controls whether the identity appears in proximity
	// queries and receives SOS broadcasts.
	ShareLocation bool `json:"share_location"`
}

// IsParent reports whether the identity currently monitors any dependents.
func (i *Identity) IsParent() bool {
	return len(i.ChildIDs) > 0
}

// HasParent reports whether the identity currently has a guardian.
func (i *Identity) HasParent() bool {
	return i.ParentID != ""
}
