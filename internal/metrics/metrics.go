// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heatlens_sessions_active",
			Help: "Current number of tracked sessions in the registry",
		},
	)

	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatlens_sessions_started_total",
			Help: "Total number of sessions opened",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_sessions_ended_total",
			Help: "Total number of sessions ended",
		},
		[]string{"reason"}, // "client", "swept", "replaced"
	)

	// Ingestion Metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_messages_received_total",
			Help: "Total control messages received, by type",
		},
		[]string{"type"},
	)

	MessagesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_messages_discarded_total",
			Help: "Total malformed or orphaned frames discarded",
		},
		[]string{"reason"}, // "bad_json", "bad_base64", "undersized", "orphan_binary", "unknown_type"
	)

	BinaryFramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatlens_binary_frames_received_total",
			Help: "Total binary image frames received",
		},
	)

	IngestConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heatlens_ingest_connections",
			Help: "Current number of open tracker connections",
		},
	)

	// Persistence Metrics
	CapturesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatlens_captures_saved_total",
			Help: "Total capture file pairs written to disk",
		},
	)

	CapturesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_captures_failed_total",
			Help: "Total capture persistence failures",
		},
		[]string{"stage"}, // "image", "metadata", "breaker_open"
	)

	CaptureBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatlens_capture_bytes_total",
			Help: "Total image bytes persisted",
		},
	)

	SaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heatlens_save_duration_seconds",
			Help:    "Duration of capture file-pair writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Notification Metrics
	AdminListeners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heatlens_admin_listeners",
			Help: "Current number of connected dashboard listeners",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_notifications_sent_total",
			Help: "Total notification events broadcast, by type",
		},
		[]string{"type"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heatlens_notifications_dropped_total",
			Help: "Total notification events dropped (full channel or dead listener)",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heatlens_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heatlens_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records an API request with its latency.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSave records a successful capture persistence.
func RecordSave(imageBytes int, duration time.Duration) {
	CapturesSaved.Inc()
	CaptureBytes.Add(float64(imageBytes))
	SaveDuration.Observe(duration.Seconds())
}
