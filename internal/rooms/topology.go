// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package rooms

import (
	"context"
	"fmt"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// Directory resolves an identity's guardian/dependent relationships.
// Implemented by the identity store; lookups may fail transiently, in which
// case the whole connect operation aborts (no partial enrollment).
type Directory interface {
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
}

// hubPublisher is the transport-side fan-out primitive, satisfied by
// *websocket.Hub.
type hubPublisher interface {
	Publish(channel, event string, payload interface{})
}

// Topology computes channel memberships on connect and publishes events to
// typed channels. It owns no connection state itself; enrollment and
// membership teardown are handled by the transport layer's client
// lifecycle.
type Topology struct {
	directory Directory
	hub       hubPublisher
}

// NewTopology creates a topology manager over the given directory and hub.
func NewTopology(directory Directory, hub hubPublisher) *Topology {
	return &Topology{directory: directory, hub: hub}
}

// Channels computes the channel memberships for an identity at handshake
// time:
//
//  1. the self channel, for events about the identity itself;
//  2. the parent channel keyed by the identity's own id, but only when the
//     identity actually has dependents;
//  3. the child channel keyed by the identity's own id, unconditionally,
//     plus one child channel per dependent so the guardian can broadcast
//     parent-to-child events.
//
// The directory's two relationship sides may be transiently inconsistent;
// membership is derived solely from this identity's record and never
// revalidated against the other side.
func (t *Topology) Channels(ctx context.Context, identityID string) ([]ChannelKey, error) {
	ident, err := t.directory.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %s: %w", identityID, err)
	}

	channels := []ChannelKey{
		Self(identityID),
		Child(identityID),
	}

	if ident.IsParent() {
		channels = append(channels, Parent(identityID))
		for _, childID := range ident.ChildIDs {
			channels = append(channels, Child(childID))
		}
	}

	logging.Debug().
		Str("identity_id", identityID).
		Int("channels", len(channels)).
		Bool("is_parent", ident.IsParent()).
		Msg("computed channel memberships")

	return channels, nil
}

// Publish fans the event out to every connection currently enrolled in the
// channel. Implements Broadcaster.
func (t *Topology) Publish(channel ChannelKey, event string, payload interface{}) {
	t.hub.Publish(string(channel), event, payload)
}

// PublishToParentOf publishes an event on the dependent's guardian channel.
// A dependent without a guardian, or a guardian without live connections,
// results in the event being dropped; that is not an error.
func (t *Topology) PublishToParentOf(ctx context.Context, childID, event string, payload interface{}) error {
	ident, err := t.directory.GetIdentity(ctx, childID)
	if err != nil {
		return fmt.Errorf("resolve identity %s: %w", childID, err)
	}
	if !ident.HasParent() {
		return nil
	}

	t.Publish(Parent(ident.ParentID), event, payload)
	return nil
}
