// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package store persists captures as image+metadata file pairs.

The filename IS the index: a capture is stored as
{sessionId}_{timestamp}.{ext} plus {sessionId}_{timestamp}.json, and
listing re-derives session id and timestamp from the name (timestamp =
segment after the last underscore, session id = everything before it).
This is a strict contract shared with the dashboard, not a convention.

# Write path

Writes are synchronous in the ingest hot path. A circuit breaker stops
hammering a failing disk: after repeated write failures the breaker
opens and saves are rejected immediately until a cooldown probe
succeeds. No partial-write cleanup is performed when one file of a pair
fails; readers ignore metadata without an image.

# Deletion

DeleteSession removes every file whose name starts with the session id
prefix. Session ids containing path separators or ".." are rejected
with ErrBadSessionID before any filesystem access.
*/
package store
