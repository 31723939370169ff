// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package metrics provides Prometheus instrumentation for Heatlens:
// session lifecycle, ingestion message flow, persistence, and the
// dashboard notification feed. All collectors are registered with the
// default registry via promauto and exposed on /metrics.
package metrics
