// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package services wraps the server's long-running components as
// suture services: the HTTP server (ListenAndServe translated to the
// context-aware Serve pattern with graceful shutdown), the notification
// hub, and the session staleness sweeper. Each implements fmt.Stringer
// so supervisor logs name the service.
package services
