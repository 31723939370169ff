// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package middleware holds the HTTP middleware shared by the admin API:
// request-id propagation (honoring inbound X-Request-ID) and Prometheus
// instrumentation of request latency and status.
package middleware
