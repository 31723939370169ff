// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package api provides standardized API response handling and the HTTP
// routing for the admin surface.
//
// The router mounts:
//   - /api/v1/health (plus /live and /ready): liveness and readiness probes
//   - /api/uploads, /api/session/{id}, /api/session-diagnostics:
//     rate-limited admin queries over the store and registry
//   - /metrics: Prometheus exposition
//   - /ws/ingest: tracker ingestion endpoint
//   - /ws/admin: dashboard notification feed
//   - /uploads/*: static serving of persisted capture files
//
// Every JSON response uses the APIResponse envelope (success flag,
// data or error, request-id metadata) written through goccy/go-json.
package api
