// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package protocol defines the WebSocket wire protocol between trackers
and the ingestion server.

Control messages are JSON with a required "type" field. Image bytes
travel as raw binary frames correlated to the immediately preceding
image-announcing control message on the same connection.

# Message types

Tracker to server:

  - session_start: opens a session (url, viewport, optional userId)
  - mouse_data / click_data: batched interaction samples
  - screenshot: capture metadata, optionally with an inline base64 image
  - heatmap_metadata: capture metadata announcing a binary frame
  - session_end: closes the session
  - ping: keepalive, echoed timestamp

Server to tracker:

  - ack, pong, upload_success, upload_error
  - config / config_update: tracker tuning pushed by the server

All wire timestamps are epoch milliseconds.

# Correlation invariant

Order-based correlation is only sound because the tracker guarantees at
most one capture in flight per connection. A client that interleaves
captures on one connection produces undefined pairings; the server does
not attempt to repair them.
*/
package protocol
