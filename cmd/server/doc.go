// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package main is the entry point for the Heatlens server.

Heatlens captures browsing-session heatmap data: trackers embedded in
observed pages stream pointer activity and page captures over
WebSocket, and the server persists each capture as an image+metadata
file pair, feeds a live dashboard, and answers admin queries.

# Architecture

All long-running components run under a suture supervision tree; a
crash in the session layer does not take down the API layer:

	heatlens
	├── session-layer
	│   ├── notify-hub        (dashboard event fan-out)
	│   └── session-sweeper   (staleness eviction)
	└── api-layer
	    └── http-server       (ingest WS, admin feed, REST, metrics)

Component initialization order:

 1. Configuration: layered defaults, config.yaml, environment (Koanf v2)
 2. Logging: zerolog, JSON or console output
 3. Store: uploads directory with a breaker-guarded synchronous writer
 4. Registry: in-memory session table with staleness sweeping
 5. Notification hub: real-time events for dashboard listeners
 6. HTTP server: ingest WebSocket, admin feed, REST API, metrics

# Shutdown

The server handles graceful shutdown on SIGINT and SIGTERM: it stops
accepting new connections, waits for in-flight requests, and stops the
supervised services within the shutdown timeout. Services still running
after the timeout are reported before exit.
*/
package main
