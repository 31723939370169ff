// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package notify fans server events out to connected dashboard
// listeners. Delivery is best-effort and at-most-once per listener per
// event: a listener whose send buffer is full or whose connection has
// died is pruned from the set without affecting delivery to the others.
//
// The hub runs as a supervised service (RunWithContext); listeners are
// registered by the admin feed handler after the WebSocket upgrade and
// unregister themselves when their read pump detects closure.
//
// Event types: session_started, session_ended, image_uploaded,
// new_data, stats_update.
package notify
