// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package main is a demonstration tracker agent. It connects to a
// Heatlens server, walks a synthetic pointer across a virtual page,
// clicks occasionally, and answers capture requests with a generated
// placeholder frame. Useful for exercising a server without a real
// embedded tracker.
//
// Usage:
//
//	heatlens-tracker -server ws://localhost:3944/ws/ingest -duration 30s
package main
