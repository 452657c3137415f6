// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package proximity answers "who is physically near this point" and fans
// SOS alerts out to those users over their direct connections. Queries run
// against the bulk location snapshot; there is no spatial index, the
// population is scanned linearly per request.
package proximity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sentinel/internal/geo"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/presence"
)

// EventSOSAlert is delivered to each recipient of an SOS broadcast.
const EventSOSAlert = "nearby-sos-alert"

// Snapshots lists the latest known location of every identity that has
// location sharing enabled. Identities without a stored snapshot are absent.
type Snapshots interface {
	ListEnabledWithLocation(ctx context.Context) ([]models.LocationSnapshot, error)
}

// Directory resolves display metadata for query results.
type Directory interface {
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
}

// Presence resolves a live connection for direct delivery.
type Presence interface {
	Lookup(identityID string) (presence.Conn, bool)
}

// Config holds the proximity thresholds.
type Config struct {
	// SOSRadiusKm is the fixed broadcast radius for SOS alerts.
	SOSRadiusKm float64

	// DefaultRadiusKm is applied to nearby queries that do not specify one.
	DefaultRadiusKm float64
}

// DefaultConfig returns the production radii: 5 km for both.
func DefaultConfig() Config {
	return Config{SOSRadiusKm: 5, DefaultRadiusKm: 5}
}

// SOSEvent is the per-recipient payload of an SOS broadcast. Distance is
// recipient-specific; everything else is shared.
type SOSEvent struct {
	AlertID    string    `json:"alert_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address,omitempty"`
	DistanceKm float64   `json:"distance_km"`
	Timestamp  time.Time `json:"timestamp"`
}

// SOSResult reports the outcome of a broadcast.
type SOSResult struct {
	AlertID       string   `json:"alert_id"`
	NotifiedCount int      `json:"notified_count"`
	NotifiedIDs   []string `json:"notified_ids"`
}

// Service runs proximity queries and SOS broadcasts.
type Service struct {
	snapshots Snapshots
	directory Directory
	presence  Presence
	cfg       Config

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewService creates a proximity service with the given collaborators.
func NewService(snapshots Snapshots, directory Directory, pres Presence, cfg Config) *Service {
	if cfg.SOSRadiusKm <= 0 {
		cfg.SOSRadiusKm = DefaultConfig().SOSRadiusKm
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = DefaultConfig().DefaultRadiusKm
	}
	return &Service{
		snapshots: snapshots,
		directory: directory,
		presence:  pres,
		cfg:       cfg,
		now:       time.Now,
	}
}

// FindNearby returns every sharing identity within radiusKm of origin,
// ascending by distance. Equal distances keep snapshot order (the sort is
// stable). The identity named by excludeID is omitted; pass radiusKm <= 0
// for the configured default.
func (s *Service) FindNearby(ctx context.Context, origin models.Coordinate, radiusKm float64, excludeID string) ([]models.NearbyUser, error) {
	if !origin.Valid() {
		return nil, ErrInvalidCoordinate
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.DefaultRadiusKm
	}

	snaps, err := s.snapshots.ListEnabledWithLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list location snapshots: %w", err)
	}

	nearby := make([]models.NearbyUser, 0)
	for _, snap := range snaps {
		if snap.IdentityID == excludeID || !snap.Coordinate.Valid() {
			continue
		}
		d := geo.DistanceKm(origin, snap.Coordinate)
		if d > radiusKm {
			continue
		}
		nearby = append(nearby, s.annotate(ctx, snap, d))
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// annotate joins a snapshot with directory metadata. A failed lookup keeps
// the result with the identity id as its name; proximity hits must not
// disappear because the directory hiccuped.
func (s *Service) annotate(ctx context.Context, snap models.LocationSnapshot, distanceKm float64) models.NearbyUser {
	user := models.NearbyUser{
		ID:         snap.IdentityID,
		Name:       snap.IdentityID,
		Coordinate: snap.Coordinate,
		DistanceKm: distanceKm,
	}
	ident, err := s.directory.GetIdentity(ctx, snap.IdentityID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("identity_id", snap.IdentityID).Msg("directory lookup failed for nearby result")
		return user
	}
	user.Name = ident.DisplayName
	user.AccountID = ident.AccountID
	return user
}

// BroadcastSOS delivers an SOS alert to every sharing identity within the
// fixed radius of origin, excluding the sender. Recipients without a live
// connection are silently skipped. Returns the generated alert id and the
// identities actually reached.
func (s *Service) BroadcastSOS(ctx context.Context, senderID string, origin models.Coordinate, address string) (*SOSResult, error) {
	if !origin.Valid() {
		return nil, ErrInvalidCoordinate
	}

	senderName := senderID
	if ident, err := s.directory.GetIdentity(ctx, senderID); err == nil {
		senderName = ident.DisplayName
	}

	nearby, err := s.FindNearby(ctx, origin, s.cfg.SOSRadiusKm, senderID)
	if err != nil {
		return nil, err
	}

	result := &SOSResult{
		AlertID:     uuid.NewString(),
		NotifiedIDs: make([]string, 0, len(nearby)),
	}
	now := s.now()
	for _, user := range nearby {
		conn, ok := s.presence.Lookup(user.ID)
		if !ok {
			metrics.DirectDeliveries.WithLabelValues(EventSOSAlert, "no_connection").Inc()
			continue
		}
		event := SOSEvent{
			AlertID:    result.AlertID,
			SenderID:   senderID,
			SenderName: senderName,
			Latitude:   origin.Latitude,
			Longitude:  origin.Longitude,
			Address:    address,
			DistanceKm: user.DistanceKm,
			Timestamp:  now,
		}
		if !conn.TrySend(EventSOSAlert, event) {
			metrics.DirectDeliveries.WithLabelValues(EventSOSAlert, "buffer_full").Inc()
			continue
		}
		metrics.DirectDeliveries.WithLabelValues(EventSOSAlert, "delivered").Inc()
		result.NotifiedIDs = append(result.NotifiedIDs, user.ID)
	}
	result.NotifiedCount = len(result.NotifiedIDs)

	metrics.SOSBroadcasts.Inc()
	metrics.SOSRecipients.Add(float64(result.NotifiedCount))
	logging.Ctx(ctx).Warn().
		Str("sender_id", senderID).
		Str("alert_id", result.AlertID).
		Int("nearby", len(nearby)).
		Int("notified", result.NotifiedCount).
		Msg("sos broadcast")

	return result, nil
}
