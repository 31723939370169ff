// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package supervisor builds the suture supervision tree for the server.
//
// The tree has two child layers under the root supervisor:
//
//	heatlens
//	├── session-layer   (notification hub, session sweeper)
//	└── api-layer       (HTTP server)
//
// A crash in one layer restarts only that layer's services; suture
// events are logged through the slog bridge in internal/logging.
package supervisor
