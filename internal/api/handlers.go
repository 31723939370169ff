// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
	"github.com/tomtom215/heatlens/internal/notify"
	"github.com/tomtom215/heatlens/internal/registry"
	"github.com/tomtom215/heatlens/internal/store"
)

var adminUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// uploads returns every stored capture grouped by session, newest first
// within each group.
func (router *Router) uploads(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	groups, err := router.store.List()
	if err != nil {
		rw.StorageError(err)
		return
	}
	if groups == nil {
		groups = []models.SessionUploads{}
	}

	rw.SuccessWithMeta(groups, &APIMeta{Count: len(groups)})
}

// deleteSession removes every stored file for a session and closes its
// live registry entry if one exists.
func (router *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		rw.BadRequest("session id is required")
		return
	}

	deleted, err := router.store.DeleteSession(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrBadSessionID) {
			rw.BadRequest("invalid session id")
			return
		}
		rw.StorageError(err)
		return
	}

	router.registry.Close(sessionID, registry.EndReasonClient)

	logging.Info().Str("session_id", sessionID).Int("deleted", deleted).Msg("session deleted via API")
	rw.Success(map[string]interface{}{
		"sessionId": sessionID,
		"deleted":   deleted,
	})
}

// sessionDiagnostics returns the live registry snapshot for one session.
func (router *Router) sessionDiagnostics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		rw.BadRequest("sessionId query parameter is required")
		return
	}

	session, ok := router.registry.Get(sessionID)
	if !ok {
		rw.NotFound("session not active")
		return
	}

	rw.Success(map[string]interface{}{
		"session":        session,
		"activeSessions": router.registry.Len(),
	})
}

func (router *Router) health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{
		"status":         "ok",
		"activeSessions": router.registry.Len(),
		"listeners":      router.hub.ListenerCount(),
		"time":           time.Now().UTC(),
	})
}

func (router *Router) healthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// healthReady verifies the store is writable enough to list, which is
// what every admin request ultimately depends on.
func (router *Router) healthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, err := router.store.List(); err != nil {
		rw.ServiceUnavailable("store unavailable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// adminFeed upgrades a dashboard connection and registers it with the
// notification hub.
func (router *Router) adminFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := adminUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("admin upgrade failed")
		return
	}
	logging.Debug().Str("remote", r.RemoteAddr).Msg("admin listener connected")
	listener := notify.NewListener(router.hub, conn)
	router.hub.Register <- listener
	listener.Start()
}
