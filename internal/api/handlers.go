// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package api provides the HTTP and WebSocket surface of the server: journey
// lifecycle, location/status pass-throughs, proximity queries, SOS
// broadcast, and the realtime connection handshake.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/journey"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
	"github.com/tomtom215/sentinel/internal/presence"
	"github.com/tomtom215/sentinel/internal/proximity"
	"github.com/tomtom215/sentinel/internal/rooms"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

// JourneyEngine runs the deviation state machine. Satisfied by
// *journey.Engine.
type JourneyEngine interface {
	Start(ctx context.Context, identityID string, from, to models.Waypoint, path []models.Coordinate) (*models.Journey, error)
	Stop(ctx context.Context, identityID string) error
	RespondOkay(ctx context.Context, identityID string, isOkay bool) error
	CheckDeviation(ctx context.Context, identityID string, lat, lng float64) (*journey.CheckResult, error)
}

// ProximityService answers nearby queries and SOS broadcasts. Satisfied by
// *proximity.Service.
type ProximityService interface {
	FindNearby(ctx context.Context, origin models.Coordinate, radiusKm float64, excludeID string) ([]models.NearbyUser, error)
	BroadcastSOS(ctx context.Context, senderID string, origin models.Coordinate, address string) (*proximity.SOSResult, error)
}

// LocationStore persists last-known positions. Satisfied by *store.Store.
type LocationStore interface {
	SaveSnapshot(ctx context.Context, snap *models.LocationSnapshot) error
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	cfg       *config.Config
	journeys  JourneyEngine
	proximity ProximityService
	locations LocationStore
	topology  *rooms.Topology
	hub       *ws.Hub
	registry  *presence.Registry
}

// NewHandler creates the API handler set.
func NewHandler(cfg *config.Config, journeys JourneyEngine, prox ProximityService, locations LocationStore, topology *rooms.Topology, hub *ws.Hub, registry *presence.Registry) *Handler {
	return &Handler{
		cfg:       cfg,
		journeys:  journeys,
		proximity: prox,
		locations: locations,
		topology:  topology,
		hub:       hub,
		registry:  registry,
	}
}

// JourneyStart begins monitoring a journey for the authenticated identity.
func (h *Handler) JourneyStart(w http.ResponseWriter, r *http.Request) {
	var req journeyStartRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	j, err := h.journeys.Start(r.Context(), identityID, req.From.toModel(), req.To.toModel(), req.path())
	if err != nil {
		if errors.Is(err, journey.ErrInvalidCoordinate) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Coordinate out of range", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start journey", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, j)
}

// JourneyStop ends the authenticated identity's journey.
func (h *Handler) JourneyStop(w http.ResponseWriter, r *http.Request) {
	identityID := auth.IdentityFromContext(r.Context())
	if err := h.journeys.Stop(r.Context(), identityID); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to stop journey", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]bool{"stopped": true})
}

// JourneyRespond processes the traveler's "I'm okay" confirmation after a
// deviation alert.
func (h *Handler) JourneyRespond(w http.ResponseWriter, r *http.Request) {
	var req journeyRespondRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	if err := h.journeys.RespondOkay(r.Context(), identityID, req.IsOkay); err != nil {
		if errors.Is(err, journey.ErrInvalidResponse) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "is_okay must be true", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record response", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]bool{"cleared": true})
}

// JourneyCheck evaluates the authenticated identity's position against its
// active route.
func (h *Handler) JourneyCheck(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	result, err := h.journeys.CheckDeviation(r.Context(), identityID, req.Latitude, req.Longitude)
	if err != nil {
		if errors.Is(err, journey.ErrInvalidCoordinate) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Coordinate out of range", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Deviation check failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, result)
}

// LocationUpdate persists the identity's latest position, fans it out to the
// guardian channel, and runs a deviation check against any active journey.
func (h *Handler) LocationUpdate(w http.ResponseWriter, r *http.Request) {
	var req locationUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	now := time.Now()
	snap := &models.LocationSnapshot{
		IdentityID: identityID,
		Coordinate: models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
		Address:    req.Address,
		UpdatedAt:  now,
	}
	if err := h.locations.SaveSnapshot(r.Context(), snap); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store location", err)
		return
	}

	event := rooms.LocationUpdateEvent{
		ChildID:   identityID,
		Location:  snap.Coordinate,
		Address:   req.Address,
		Timestamp: now,
	}
	if err := h.topology.PublishToParentOf(r.Context(), identityID, rooms.EventLocationUpdate, event); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("guardian fan-out failed for location update")
	}

	result, err := h.journeys.CheckDeviation(r.Context(), identityID, req.Latitude, req.Longitude)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Deviation check failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"stored":    true,
		"deviation": result,
	})
}

// BatteryLevel fans the battery state out to the guardian channel. Thin
// pass-through; the server stores nothing.
func (h *Handler) BatteryLevel(w http.ResponseWriter, r *http.Request) {
	var req batteryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	event := rooms.BatteryLevelEvent{
		ChildID:   identityID,
		Level:     req.Level,
		Charging:  req.Charging,
		Timestamp: time.Now(),
	}
	if err := h.topology.PublishToParentOf(r.Context(), identityID, rooms.EventBatteryLevel, event); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("guardian fan-out failed for battery level")
	}

	respondSuccess(w, r, http.StatusOK, map[string]bool{"published": true})
}

// AppState fans the app lifecycle state out to the guardian channel.
func (h *Handler) AppState(w http.ResponseWriter, r *http.Request) {
	var req appStateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	event := rooms.AppStateEvent{
		ChildID:   identityID,
		State:     req.State,
		Timestamp: time.Now(),
	}
	if err := h.topology.PublishToParentOf(r.Context(), identityID, rooms.EventAppState, event); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("guardian fan-out failed for app state")
	}

	respondSuccess(w, r, http.StatusOK, map[string]bool{"published": true})
}

// Nearby lists sharing identities within the requested radius of the given
// point, ascending by distance. The requester is excluded from its own
// results.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	origin := models.Coordinate{
		Latitude:  getFloatParam(r, "lat", 999),
		Longitude: getFloatParam(r, "lng", 999),
	}
	if !origin.Valid() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "lat and lng query parameters are required and must be in range", nil)
		return
	}
	radiusKm := getFloatParam(r, "radius_km", h.cfg.Safety.NearbyDefaultRadiusKm)

	identityID := auth.IdentityFromContext(r.Context())
	users, err := h.proximity.FindNearby(r.Context(), origin, radiusKm, identityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Nearby query failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"users":     users,
		"radius_km": radiusKm,
	})
}

// SOS broadcasts an alert to every sharing identity near the sender.
func (h *Handler) SOS(w http.ResponseWriter, r *http.Request) {
	var req sosRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	identityID := auth.IdentityFromContext(r.Context())
	origin := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	result, err := h.proximity.BroadcastSOS(r.Context(), identityID, origin, req.Address)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "SOS broadcast failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, result)
}

// Health reports liveness plus connection counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": h.hub.ClientCount(),
		"presences":   h.registry.Count(),
	})
}
