// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package journey implements the per-traveler deviation state machine:
// Inactive -> Active:OnRoute -> Active:PendingResponse -> Active:Escalated.
// A pending deviation returns to on-route only through an explicit "I'm
// okay" response or a stop; a transient excursion back inside the threshold
// deliberately does not clear the flags (anti-flapping).
//
// The escalation window is evaluated lazily, on the next check: there is no
// background timer, so a traveler that stops sending checks is never
// escalated autonomously. Making escalation proactive is an open product
// decision, not a bug.
package journey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/sentinel/internal/geo"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/presence"
)

// Store abstracts journey persistence. A traveler with no stored record
// loads as the zero (inactive) journey.
type Store interface {
	LoadJourney(ctx context.Context, identityID string) (*models.Journey, error)
	SaveJourney(ctx context.Context, identityID string, j *models.Journey) error
}

// Directory resolves the traveler's guardian for direct notification.
type Directory interface {
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
}

// Presence resolves a live connection for direct delivery.
// Satisfied by *presence.Registry.
type Presence interface {
	Lookup(identityID string) (presence.Conn, bool)
}

// Config holds the engine's safety thresholds.
type Config struct {
	// DeviationThresholdKm is the distance from the route path beyond which
	// the traveler counts as deviating.
	DeviationThresholdKm float64

	// EscalationWindow is how long an unconfirmed deviation may stay
	// pending before the guardian is alerted.
	EscalationWindow time.Duration
}

// DefaultConfig returns the production thresholds: 0.2 km and 5 minutes.
func DefaultConfig() Config {
	return Config{
		DeviationThresholdKm: 0.2,
		EscalationWindow:     5 * time.Minute,
	}
}

// Engine runs the deviation state machine for all travelers. Checks for the
// same traveler are serialized through a per-identity mutex: a client may
// poll faster than round-trip latency, and an unserialized read-modify-write
// could double-fire an escalation or lose a flag update. Different travelers
// proceed fully in parallel.
type Engine struct {
	store     Store
	directory Directory
	presence  Presence
	cfg       Config

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a deviation engine with the given collaborators.
func NewEngine(store Store, directory Directory, pres Presence, cfg Config) *Engine {
	if cfg.DeviationThresholdKm <= 0 {
		cfg.DeviationThresholdKm = DefaultConfig().DeviationThresholdKm
	}
	if cfg.EscalationWindow <= 0 {
		cfg.EscalationWindow = DefaultConfig().EscalationWindow
	}
	return &Engine{
		store:     store,
		directory: directory,
		presence:  pres,
		cfg:       cfg,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations for one traveler.
// Entries are never removed; the map is bounded by the identity population.
func (e *Engine) lockFor(identityID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[identityID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[identityID] = l
	}
	return l
}

// Start creates (or resets) the traveler's journey to the active on-route
// state and notifies the guardian's direct connection if one is live.
// The route path is a precomputed polyline supplied by the caller; it may
// be empty, in which case deviation checks are no-ops.
func (e *Engine) Start(ctx context.Context, identityID string, from, to models.Waypoint, path []models.Coordinate) (*models.Journey, error) {
	if !from.Coordinate.Valid() || !to.Coordinate.Valid() {
		return nil, ErrInvalidCoordinate
	}
	for _, p := range path {
		if !p.Valid() {
			return nil, ErrInvalidCoordinate
		}
	}

	l := e.lockFor(identityID)
	l.Lock()
	defer l.Unlock()

	previous, err := e.store.LoadJourney(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("load journey for %s: %w", identityID, err)
	}

	now := e.now()
	j := &models.Journey{
		IsActive:          true,
		From:              from,
		To:                to,
		SelectedRoutePath: path,
		StartedAt:         &now,
	}
	if err := e.store.SaveJourney(ctx, identityID, j); err != nil {
		return nil, fmt.Errorf("save journey for %s: %w", identityID, err)
	}

	if !previous.IsActive {
		metrics.ActiveJourneys.Inc()
	}

	logging.Ctx(ctx).Info().
		Str("identity_id", identityID).
		Str("from", from.Name).
		Str("to", to.Name).
		Int("route_vertices", len(path)).
		Msg("journey started")

	e.notifyParent(ctx, identityID, EventJourneyStarted, func(ident *models.Identity) interface{} {
		return StartedEvent{ChildID: identityID, ChildName: ident.DisplayName, Journey: *j}
	})

	return j, nil
}

// Stop resets the traveler's journey to the inactive state and notifies the
// guardian's direct connection if one is live.
func (e *Engine) Stop(ctx context.Context, identityID string) error {
	l := e.lockFor(identityID)
	l.Lock()
	defer l.Unlock()

	j, err := e.store.LoadJourney(ctx, identityID)
	if err != nil {
		return fmt.Errorf("load journey for %s: %w", identityID, err)
	}

	wasActive := j.IsActive
	j.Reset()
	if err := e.store.SaveJourney(ctx, identityID, j); err != nil {
		return fmt.Errorf("save journey for %s: %w", identityID, err)
	}

	if wasActive {
		metrics.ActiveJourneys.Dec()
	}

	logging.Ctx(ctx).Info().Str("identity_id", identityID).Msg("journey stopped")

	e.notifyParent(ctx, identityID, EventJourneyStopped, func(ident *models.Identity) interface{} {
		return StoppedEvent{ChildID: identityID, ChildName: ident.DisplayName}
	})

	return nil
}

// RespondOkay processes the traveler's confirmation after a deviation.
// Only isOkay=true is a valid input: it clears the deviation flags and
// returns the journey to on-route, re-arming the first-alert branch.
func (e *Engine) RespondOkay(ctx context.Context, identityID string, isOkay bool) error {
	if !isOkay {
		return ErrInvalidResponse
	}

	l := e.lockFor(identityID)
	l.Lock()
	defer l.Unlock()

	j, err := e.store.LoadJourney(ctx, identityID)
	if err != nil {
		return fmt.Errorf("load journey for %s: %w", identityID, err)
	}

	j.ClearDeviation()
	if err := e.store.SaveJourney(ctx, identityID, j); err != nil {
		return fmt.Errorf("save journey for %s: %w", identityID, err)
	}

	logging.Ctx(ctx).Info().Str("identity_id", identityID).Msg("traveler confirmed okay, deviation cleared")
	return nil
}

// CheckDeviation evaluates the traveler's current position against the
// active route. No-op reporting on-route when the journey is inactive or
// has an empty path. A previously set alert is not cleared by moving back
// inside the threshold; only RespondOkay or Stop clears it.
func (e *Engine) CheckDeviation(ctx context.Context, identityID string, lat, lng float64) (*CheckResult, error) {
	current := models.Coordinate{Latitude: lat, Longitude: lng}
	if !current.Valid() {
		return nil, ErrInvalidCoordinate
	}

	l := e.lockFor(identityID)
	l.Lock()
	defer l.Unlock()

	j, err := e.store.LoadJourney(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("load journey for %s: %w", identityID, err)
	}

	if !j.IsActive || len(j.SelectedRoutePath) == 0 {
		return &CheckResult{OnRoute: true}, nil
	}

	d := geo.MinDistanceToPath(current, j.SelectedRoutePath)
	if d <= e.cfg.DeviationThresholdKm {
		return &CheckResult{OnRoute: true, DistanceFromRouteKm: d}, nil
	}

	if !j.DeviationAlertSent {
		now := e.now()
		j.DeviationDetected = true
		j.DeviationAlertSent = true
		j.DeviationAlertTime = &now
		if err := e.store.SaveJourney(ctx, identityID, j); err != nil {
			return nil, fmt.Errorf("save journey for %s: %w", identityID, err)
		}

		metrics.DeviationAlerts.WithLabelValues("first_alert").Inc()
		logging.Ctx(ctx).Warn().
			Str("identity_id", identityID).
			Float64("distance_km", d).
			Msg("route deviation detected, waiting for traveler response")

		return &CheckResult{DistanceFromRouteKm: d, AlertSent: true}, nil
	}

	// Alert already sent: inside the window we keep waiting for the
	// traveler's own response; past it we escalate to the guardian. The
	// escalation re-fires on every subsequent check while the deviation
	// holds; there is no dedup flag beyond DeviationAlertSent.
	elapsed := e.now().Sub(*j.DeviationAlertTime)
	if elapsed <= e.cfg.EscalationWindow {
		return &CheckResult{DistanceFromRouteKm: d, AlertPending: true}, nil
	}

	if e.escalate(ctx, identityID, current, d) {
		return &CheckResult{DistanceFromRouteKm: d, ParentAlerted: true}, nil
	}
	return &CheckResult{DistanceFromRouteKm: d, AlertPending: true}, nil
}

// escalate delivers the deviation to the guardian's live connection.
// Returns false when the traveler has no guardian or the guardian has no
// live connection; the alert stays pending in that case.
func (e *Engine) escalate(ctx context.Context, identityID string, current models.Coordinate, distanceKm float64) bool {
	ident, err := e.directory.GetIdentity(ctx, identityID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("identity_id", identityID).Msg("identity lookup failed during escalation")
		return false
	}
	if !ident.HasParent() {
		return false
	}

	conn, ok := e.presence.Lookup(ident.ParentID)
	if !ok {
		metrics.DirectDeliveries.WithLabelValues(EventDeviationAlert, "no_connection").Inc()
		return false
	}

	event := DeviationEvent{
		ChildID:    identityID,
		ChildName:  ident.DisplayName,
		Latitude:   current.Latitude,
		Longitude:  current.Longitude,
		DistanceKm: distanceKm,
		Timestamp:  e.now(),
	}
	if !conn.TrySend(EventDeviationAlert, event) {
		metrics.DirectDeliveries.WithLabelValues(EventDeviationAlert, "buffer_full").Inc()
		return false
	}

	metrics.DirectDeliveries.WithLabelValues(EventDeviationAlert, "delivered").Inc()
	metrics.DeviationAlerts.WithLabelValues("escalated").Inc()
	logging.Ctx(ctx).Warn().
		Str("identity_id", identityID).
		Str("parent_id", ident.ParentID).
		Float64("distance_km", distanceKm).
		Msg("deviation escalated to guardian")
	return true
}

// notifyParent delivers a lifecycle event to the guardian's direct
// connection. A missing guardian or connection is a delivery miss, never an
// error; the event is simply dropped.
func (e *Engine) notifyParent(ctx context.Context, identityID, event string, payload func(*models.Identity) interface{}) {
	ident, err := e.directory.GetIdentity(ctx, identityID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("identity_id", identityID).Msg("identity lookup failed, guardian not notified")
		return
	}
	if !ident.HasParent() {
		return
	}

	conn, ok := e.presence.Lookup(ident.ParentID)
	if !ok {
		metrics.DirectDeliveries.WithLabelValues(event, "no_connection").Inc()
		return
	}
	if !conn.TrySend(event, payload(ident)) {
		metrics.DirectDeliveries.WithLabelValues(event, "buffer_full").Inc()
		return
	}
	metrics.DirectDeliveries.WithLabelValues(event, "delivered").Inc()
}
