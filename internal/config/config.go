// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package config defines and loads the server configuration. Loading is
// layered: built-in defaults, then an optional YAML file, then environment
// variables, highest priority last. See koanf.go for the loader.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Storage  StorageConfig  `koanf:"storage"`
	Safety   SafetyConfig   `koanf:"safety"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// SecurityConfig holds authentication and rate-limit settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies access tokens, HMAC-SHA256. Required.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds the validity of tokens this server issues.
	TokenTTL time.Duration `koanf:"token_ttl"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// StorageConfig holds the BadgerDB settings.
type StorageConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps all records in process memory. Dev and test mode.
	InMemory bool `koanf:"in_memory"`
}

// SafetyConfig holds the monitoring thresholds.
type SafetyConfig struct {
	// DeviationThresholdKm is the distance from the route path beyond
	// which a traveler counts as deviating.
	DeviationThresholdKm float64 `koanf:"deviation_threshold_km"`

	// EscalationWindow is how long an unconfirmed deviation may stay
	// pending before the guardian is alerted.
	EscalationWindow time.Duration `koanf:"escalation_window"`

	// SOSRadiusKm is the broadcast radius for SOS alerts.
	SOSRadiusKm float64 `koanf:"sos_radius_km"`

	// NearbyDefaultRadiusKm is applied to nearby queries without an
	// explicit radius.
	NearbyDefaultRadiusKm float64 `koanf:"nearby_default_radius_km"`
}

// LoggingConfig holds the structured-logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage.in_memory is false")
	}
	if c.Safety.DeviationThresholdKm <= 0 {
		return fmt.Errorf("safety.deviation_threshold_km must be positive")
	}
	if c.Safety.EscalationWindow <= 0 {
		return fmt.Errorf("safety.escalation_window must be positive")
	}
	if c.Safety.SOSRadiusKm <= 0 {
		return fmt.Errorf("safety.sos_radius_km must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}
