// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/rooms"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

// getUpgrader builds the websocket upgrader with origin checking bound to
// the configured CORS origins. An absent Origin header is accepted: native
// mobile clients do not send one, and the handshake is already behind token
// authentication.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return h.checkWebSocketOrigin(r)
		},
	}
}

func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().
		Str("origin", sanitizeLogValue(origin)).
		Msg("websocket origin rejected")
	return false
}

// WebSocket upgrades the connection, enrolls the identity in its channels,
// and registers the connection for direct delivery. The identity comes from
// the auth middleware; handshakes pass the token via the query parameter
// since browsers cannot set headers on websocket upgrades.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	identityID := auth.IdentityFromContext(r.Context())
	if identityID == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	channels, err := h.topology.Channels(r.Context(), identityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve channel memberships", err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, identityID, rooms.Strings(channels))
	h.hub.Register <- client
	h.registry.Register(identityID, client)
	client.Start()

	logging.Ctx(r.Context()).Info().
		Str("identity_id", identityID).
		Int("channels", len(channels)).
		Msg("websocket connected")
}
