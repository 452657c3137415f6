// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sentinel/internal/auth"
	"github.com/tomtom215/sentinel/internal/config"
	"github.com/tomtom215/sentinel/internal/middleware"
)

// NewRouter assembles the full route tree. CORS runs globally so that
// OPTIONS preflights are answered before auth; everything under /api/v1
// except health requires a valid token, as does the websocket handshake.
func NewRouter(cfg *config.Config, handler *Handler, verifier auth.Verifier) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := auth.Middleware(verifier)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)
		r.Use(authenticate)

		r.Route("/journey", func(r chi.Router) {
			r.Post("/start", handler.JourneyStart)
			r.Post("/stop", handler.JourneyStop)
			r.Post("/respond", handler.JourneyRespond)
			r.Post("/check", handler.JourneyCheck)
		})

		r.Post("/location", handler.LocationUpdate)
		r.Route("/status", func(r chi.Router) {
			r.Post("/battery", handler.BatteryLevel)
			r.Post("/app-state", handler.AppState)
		})

		r.Get("/nearby", handler.Nearby)
		r.Post("/sos", handler.SOS)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
