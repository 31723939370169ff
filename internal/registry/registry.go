// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package registry

import (
	"io"
	"sync"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/metrics"
	"github.com/tomtom215/heatlens/internal/models"
)

// EndReason says why a session left the registry.
type EndReason string

const (
	// EndReasonClient is an explicit session_end from the tracker.
	EndReasonClient EndReason = "client"

	// EndReasonSwept is staleness eviction by the background sweep.
	EndReasonSwept EndReason = "swept"

	// EndReasonReplaced is a new session_start reusing the same id.
	EndReasonReplaced EndReason = "replaced"
)

// EndFunc observes session removal. Called exactly once per removed
// entry, outside the registry lock.
type EndFunc func(session models.Session, reason EndReason)

type entry struct {
	session models.Session
	conn    io.Closer
}

// Registry is the in-memory session table. Safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*entry
	staleAfter time.Duration
	onEnd      EndFunc
}

// New creates a Registry. Sessions silent for longer than staleAfter are
// eligible for eviction by Sweep. onEnd may be nil.
func New(staleAfter time.Duration, onEnd EndFunc) *Registry {
	return &Registry{
		sessions:   make(map[string]*entry),
		staleAfter: staleAfter,
		onEnd:      onEnd,
	}
}

// Open registers a session. A session_start reusing a live id replaces
// the prior entry; the displaced entry is reported ended with reason
// "replaced" and its connection is closed if it differs from conn.
func (r *Registry) Open(id string, conn io.Closer, info models.SessionInfo) {
	now := time.Now()

	r.mu.Lock()
	prior, replaced := r.sessions[id]
	r.sessions[id] = &entry{
		session: models.Session{
			ID:           id,
			Info:         info,
			OpenedAt:     now,
			LastActivity: now,
		},
		conn: conn,
	}
	size := len(r.sessions)
	r.mu.Unlock()

	if replaced {
		if prior.conn != nil && prior.conn != conn {
			_ = prior.conn.Close()
		}
		r.finish(prior.session, EndReasonReplaced)
	}

	metrics.SessionsStarted.Inc()
	metrics.SessionsActive.Set(float64(size))
	logging.Info().
		Str("session_id", id).
		Str("url", info.URL).
		Int("viewport_w", info.Viewport.Width).
		Int("viewport_h", info.Viewport.Height).
		Bool("replaced", replaced).
		Msg("session opened")
}

// Touch updates the session's last-activity time. Unknown ids are a no-op.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.session.LastActivity = time.Now()
	}
}

// AddImage bumps the image counter and touches the session.
func (r *Registry) AddImage(id string) {
	r.bump(id, func(st *models.SessionStats) { st.Images++ })
}

// AddMouse adds n mouse points and touches the session.
func (r *Registry) AddMouse(id string, n int) {
	r.bump(id, func(st *models.SessionStats) { st.MousePoints += n })
}

// AddClicks adds n clicks and touches the session.
func (r *Registry) AddClicks(id string, n int) {
	r.bump(id, func(st *models.SessionStats) { st.Clicks += n })
}

func (r *Registry) bump(id string, f func(*models.SessionStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		f(&e.session.Stats)
		e.session.LastActivity = time.Now()
	}
}

// Get returns a copy of the session, if present.
func (r *Registry) Get(id string) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		return e.session, true
	}
	return models.Session{}, false
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close removes a session. Idempotent: closing an unknown id is a no-op
// returning false. The removal summary is logged and onEnd fires once.
func (r *Registry) Close(id string, reason EndReason) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	size := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}

	metrics.SessionsActive.Set(float64(size))
	r.finish(e.session, reason)
	return true
}

// finish emits the end-of-session summary and callback.
func (r *Registry) finish(session models.Session, reason EndReason) {
	metrics.SessionsEnded.WithLabelValues(string(reason)).Inc()
	logging.Info().
		Str("session_id", session.ID).
		Str("reason", string(reason)).
		Int("images", session.Stats.Images).
		Int("mouse_points", session.Stats.MousePoints).
		Int("clicks", session.Stats.Clicks).
		Dur("duration", time.Since(session.OpenedAt)).
		Msg("session ended")

	if r.onEnd != nil {
		r.onEnd(session, reason)
	}
}

// Sweep evicts sessions whose last activity is older than the staleness
// threshold, closing their connections; a silent connection is treated
// as ended. Returns the number of sessions evicted. Safe to run
// concurrently with Close: eviction is idempotent.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.staleAfter)

	r.mu.Lock()
	var stale []*entry
	for id, e := range r.sessions {
		if e.session.LastActivity.Before(cutoff) {
			stale = append(stale, e)
			delete(r.sessions, id)
		}
	}
	size := len(r.sessions)
	r.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}

	metrics.SessionsActive.Set(float64(size))
	for _, e := range stale {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		r.finish(e.session, EndReasonSwept)
	}
	return len(stale)
}
