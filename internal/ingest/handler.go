// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package ingest

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/heatlens/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the router's CORS middleware; the
	// tracker endpoint itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades tracker connections and serves them until close.
func Handler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("tracker upgrade failed")
			return
		}
		logging.Debug().Str("remote", r.RemoteAddr).Msg("tracker connected")
		NewConn(ws, deps).Serve()
	}
}
