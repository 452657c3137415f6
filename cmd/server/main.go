// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package main is the entry point for the Sentinel server.
//
// Sentinel is a family-safety monitoring server: guardian accounts follow
// their dependents' location, battery, and app state in real time over
// websockets, journeys are tracked against a planned route with off-route
// escalation, and SOS alerts reach every sharing user nearby.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Storage: BadgerDB for identities, journeys, and location snapshots
//  3. Realtime: websocket hub, channel topology, and presence registry
//  4. Core engines: journey deviation tracking and proximity queries
//  5. Authentication: JWT bearer tokens (HMAC)
//  6. HTTP server: REST API plus the websocket handshake endpoint
//
// The hub and the HTTP server run under a suture supervision tree; a crash
// in one layer restarts that layer without taking the process down.
//
// # Configuration
//
// Highest priority wins:
//   - Environment variables (SENTINEL_ prefixed, e.g. SENTINEL_JWT_SECRET)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// JWT_SECRET is required and must be at least 32 characters.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests and the hub closes all websocket clients.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/sentinel/internal/api"
	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/journey"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/presence"
	"github.com/tomtom215/sentinel/internal/proximity"
	"github.com/tomtom215/sentinel/internal/rooms"
	"github.com/tomtom215/sentinel/internal/store"
	"github.com/tomtom215/sentinel/internal/supervisor"
	"github.com/tomtom215/sentinel/internal/supervisor/services"
	ws "github.com/tomtom215/sentinel/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("storage_path", cfg.Storage.Path).
		Bool("in_memory", cfg.Storage.InMemory).
		Float64("deviation_threshold_km", cfg.Safety.DeviationThresholdKm).
		Dur("escalation_window", cfg.Safety.EscalationWindow).
		Msg("Configuration loaded")

	db, err := store.Open(store.Config{
		Path:     cfg.Storage.Path,
		InMemory: cfg.Storage.InMemory,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}

	// Realtime plumbing. The hub fans channel events out; the registry
	// resolves an identity to its live connection for direct delivery.
	hub := ws.NewHub()
	registry := presence.NewRegistry()
	hub.SetDisconnectHandler(func(c *ws.Client) {
		registry.Unregister(c.IdentityID(), c)
	})
	topology := rooms.NewTopology(db, hub)

	engine := journey.NewEngine(db, db, registry, journey.Config{
		DeviationThresholdKm: cfg.Safety.DeviationThresholdKm,
		EscalationWindow:     cfg.Safety.EscalationWindow,
	})
	prox := proximity.NewService(db, db, registry, proximity.Config{
		SOSRadiusKm:     cfg.Safety.SOSRadiusKm,
		DefaultRadiusKm: cfg.Safety.NearbyDefaultRadiusKm,
	})

	handler := api.NewHandler(cfg, engine, prox, db, topology, hub, registry)
	router := api.NewRouter(cfg, handler, jwtManager)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddRealtimeService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
