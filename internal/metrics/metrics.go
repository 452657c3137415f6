// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package metrics provides Prometheus instrumentation for the real-time
// safety-monitoring core: connection lifecycle, event fan-out, journey
// deviation alerts, and SOS broadcasts. Metrics are registered with the
// default registry via promauto and exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections is the current number of live WebSocket clients.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_websocket_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	// EventsPublished counts events accepted for channel fan-out.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_published_total",
			Help: "Total events accepted for channel fan-out, by event name",
		},
		[]string{"event"},
	)

	// EventsDropped counts events dropped because the broadcast buffer was
	// full. Delivery is best-effort; drops are expected under backpressure.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_dropped_total",
			Help: "Total events dropped before fan-out, by event name",
		},
		[]string{"event"},
	)

	// DirectDeliveries counts direct (single-recipient) deliveries through
	// the presence registry, labeled by outcome: delivered, no_connection,
	// or buffer_full.
	DirectDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_direct_deliveries_total",
			Help: "Direct presence deliveries, by event name and outcome",
		},
		[]string{"event", "outcome"},
	)

	// DeviationAlerts counts journey deviation state transitions:
	// first_alert when the traveler crosses the threshold, escalated when
	// the unconfirmed deviation is reported to the guardian.
	DeviationAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_deviation_alerts_total",
			Help: "Journey deviation alerts, by stage (first_alert, escalated)",
		},
		[]string{"stage"},
	)

	// ActiveJourneys is the current number of journeys in the active state.
	ActiveJourneys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_active_journeys",
			Help: "Current number of active journeys",
		},
	)

	// SOSBroadcasts counts SOS broadcasts initiated.
	SOSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_sos_broadcasts_total",
			Help: "Total SOS broadcasts initiated",
		},
	)

	// SOSRecipients counts recipients notified across all SOS broadcasts.
	SOSRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_sos_recipients_total",
			Help: "Total recipients notified across all SOS broadcasts",
		},
	)

	// HTTPRequestDuration observes API endpoint latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPActiveRequests is the number of HTTP requests currently in flight.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordAPIRequest observes a completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
