// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package registry tracks live sessions in memory: one entry per session
// id, holding the originating connection, immutable session info, and
// activity counters. A periodic sweep evicts sessions that have been
// silent past the staleness threshold, whether or not their connection
// is still technically open.
//
// Close removes the entry but leaves the connection to its owner; only
// the staleness sweep force-closes connections.
package registry
