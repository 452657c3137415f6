// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package rooms builds per-identity channel memberships and routes
// real-time events between guardians and dependents. A channel is a named
// group of live connections used for targeted fan-out; the three channel
// kinds (self, parent, child) are constructed through typed keys rather
// than ad hoc string concatenation.
package rooms

// ChannelKey identifies one fan-out channel.
type ChannelKey string

// String returns the raw channel key for the transport layer.
func (k ChannelKey) String() string { return string(k) }

// Self is the channel for direct "events about me" delivery, e.g.
// app-state toggles pushed back to the identity's own devices.
func Self(identityID string) ChannelKey {
	return ChannelKey("self:" + identityID)
}

// Parent is the channel an identity listens on in its guardian role.
// A dependent's updates are published to Parent(dependent.ParentID), which
// reaches the guardian's live connections.
func Parent(identityID string) ChannelKey {
	return ChannelKey("parent:" + identityID)
}

// Child is the channel an identity is reachable on in its dependent role.
// Every identity joins Child(own id) unconditionally, whether or not it
// currently has a guardian, so a future or existing guardian can target it
// without racing relationship changes.
func Child(identityID string) ChannelKey {
	return ChannelKey("child:" + identityID)
}

// Broadcaster fans an event out to every connection currently enrolled in a
// channel. Delivery is best-effort and non-blocking; there is no
// acknowledgment, retry, or persistence of missed events.
type Broadcaster interface {
	Publish(channel ChannelKey, event string, payload interface{})
}

// Strings converts channel keys to their raw form for transport enrollment.
func Strings(keys []ChannelKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
