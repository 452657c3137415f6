// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for request ID tracking
and Prometheus metrics instrumentation. These components sit in the chi
router stack alongside the auth middleware.

Key Components:

  - Request ID: UUID-based request tracking flowing into structured logs
  - Prometheus Metrics: request duration and in-flight instrumentation,
    labeled by chi route pattern to keep cardinality bounded

Typical stack, outermost first:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(auth.Middleware(verifier))

RequestID runs first so that every later layer, including metrics and auth
failures, logs with the request id attached.
*/
package middleware
