// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package ingest handles tracker WebSocket connections: demultiplexing
JSON control messages from raw binary image frames, correlating each
binary frame with the metadata message that preceded it, and routing
recognized messages to the registry, the store, and the notification
hub.

# Frame correlation

The awaiting-image state is connection-scoped: one pending capture
context per connection, set by an image-announcing control message and
consumed by the next binary frame.

	heatmap_metadata (text)  ->  pending = metadata
	<image bytes> (binary)   ->  persist(pending, bytes); pending = nil

A binary frame with no pending context is discarded and answered with
upload_error. New metadata overwrites a lingering pending context, so a
client that announced an image and never sent it does not wedge the
connection.

# Replies

Every reply goes out under the connection's write mutex: ack for
session_start (followed by the server's tracker tuning as a config
push), pong for ping, upload_success or upload_error for image frames.
Unrecognized or malformed control messages are logged and dropped
without closing the connection.
*/
package ingest
