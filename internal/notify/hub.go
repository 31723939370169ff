// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/metrics"
	"github.com/tomtom215/heatlens/internal/models"
)

// Event types pushed to dashboard listeners.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventImageUploaded  = "image_uploaded"
	EventNewData        = "new_data"
	EventStatsUpdate    = "stats_update"
)

// Event is one notification message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of connected dashboard listeners and broadcasts
// events to them.
type Hub struct {
	listeners  map[*Listener]bool
	broadcast  chan Event
	Register   chan *Listener
	Unregister chan *Listener
	mu         sync.Mutex
}

// NewHub creates a Hub. Start it with RunWithContext, typically under
// the supervisor tree.
func NewHub() *Hub {
	return &Hub{
		listeners:  make(map[*Listener]bool),
		broadcast:  make(chan Event, 256),
		Register:   make(chan *Listener),
		Unregister: make(chan *Listener),
	}
}

// RunWithContext processes listener lifecycle and broadcasts until the
// context is canceled, then closes every listener and returns ctx.Err().
// Lifecycle events take priority over broadcasts so the listener set is
// consistent before messages flow.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case l := <-h.Register:
			h.add(l)
			continue
		case l := <-h.Unregister:
			h.remove(l)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case l := <-h.Register:
			h.add(l)
		case l := <-h.Unregister:
			h.remove(l)
		case event := <-h.broadcast:
			h.broadcastToListeners(event)
		}
	}
}

func (h *Hub) add(l *Listener) {
	h.mu.Lock()
	h.listeners[l] = true
	count := len(h.listeners)
	h.mu.Unlock()

	metrics.AdminListeners.Set(float64(count))
	logging.Info().Int("listeners", count).Msg("dashboard listener connected")
}

func (h *Hub) remove(l *Listener) {
	h.mu.Lock()
	if _, ok := h.listeners[l]; ok {
		delete(h.listeners, l)
		close(l.send)
	}
	count := len(h.listeners)
	h.mu.Unlock()

	metrics.AdminListeners.Set(float64(count))
	logging.Info().Int("listeners", count).Msg("dashboard listener disconnected")
}

// broadcastToListeners delivers an event to every listener in id order.
// Deterministic iteration keeps delivery order reproducible in tests. A
// listener that cannot accept the event is pruned.
func (h *Hub) broadcastToListeners(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ordered := make([]*Listener, 0, len(h.listeners))
	for l := range h.listeners {
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	var dead []*Listener
	for _, l := range ordered {
		select {
		case l.send <- event:
			metrics.NotificationsSent.WithLabelValues(event.Type).Inc()
		default:
			dead = append(dead, l)
		}
	}

	for _, l := range dead {
		close(l.send)
		delete(h.listeners, l)
		metrics.NotificationsDropped.Inc()
	}
	if len(dead) > 0 {
		metrics.AdminListeners.Set(float64(len(h.listeners)))
		logging.Warn().Int("pruned", len(dead)).Str("event", event.Type).Msg("pruned dead dashboard listeners")
	}
}

// shutdown closes all listeners and logs the reason.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.listeners)
	for l := range h.listeners {
		close(l.send)
		delete(h.listeners, l)
	}
	h.mu.Unlock()

	metrics.AdminListeners.Set(0)
	logging.Info().
		Str("component", "notify-hub").
		AnErr("reason", ctx.Err()).
		Int("listeners_closed", count).
		Msg("notification hub stopped")
}

// ListenerCount returns the number of connected listeners.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// publish queues an event for broadcast, dropping it if the hub is
// saturated. Broadcast is advisory; the uploads listing remains the
// source of truth for the dashboard.
func (h *Hub) publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		metrics.NotificationsDropped.Inc()
		logging.Warn().Str("event", event.Type).Msg("broadcast channel full, dropping event")
	}
}

// SessionStartedData accompanies a session_started event.
type SessionStartedData struct {
	SessionID string          `json:"sessionId"`
	URL       string          `json:"url"`
	Viewport  models.Viewport `json:"viewport"`
	Timestamp string          `json:"timestamp"`
}

// BroadcastSessionStarted announces a newly opened session.
func (h *Hub) BroadcastSessionStarted(session models.Session) {
	h.publish(Event{
		Type: EventSessionStarted,
		Data: SessionStartedData{
			SessionID: session.ID,
			URL:       session.Info.URL,
			Viewport:  session.Info.Viewport,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// SessionEndedData accompanies a session_ended event.
type SessionEndedData struct {
	SessionID string              `json:"sessionId"`
	Reason    string              `json:"reason"`
	Stats     models.SessionStats `json:"stats"`
	Timestamp string              `json:"timestamp"`
}

// BroadcastSessionEnded announces a closed or evicted session. The
// registry invokes this exactly once per removal, so listeners see one
// session_ended per session regardless of reconnects.
func (h *Hub) BroadcastSessionEnded(session models.Session, reason string) {
	h.publish(Event{
		Type: EventSessionEnded,
		Data: SessionEndedData{
			SessionID: session.ID,
			Reason:    reason,
			Stats:     session.Stats,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ImageUploadedData accompanies an image_uploaded event.
type ImageUploadedData struct {
	SessionID string `json:"sessionId"`
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Timestamp string `json:"timestamp"`
}

// BroadcastImageUploaded announces a persisted capture.
func (h *Hub) BroadcastImageUploaded(sessionID, filename string, size int64) {
	h.publish(Event{
		Type: EventImageUploaded,
		Data: ImageUploadedData{
			SessionID: sessionID,
			Filename:  filename,
			Size:      size,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// NewDataData accompanies a new_data event.
type NewDataData struct {
	SessionID string `json:"sessionId"`
	Kind      string `json:"kind"` // "mouse" or "click"
	Count     int    `json:"count"`
}

// BroadcastNewData announces fresh interaction data for a session.
func (h *Hub) BroadcastNewData(sessionID, kind string, count int) {
	h.publish(Event{
		Type: EventNewData,
		Data: NewDataData{SessionID: sessionID, Kind: kind, Count: count},
	})
}

// StatsUpdateData accompanies a stats_update event.
type StatsUpdateData struct {
	SessionID string              `json:"sessionId"`
	Stats     models.SessionStats `json:"stats"`
}

// BroadcastStatsUpdate pushes a session's refreshed counters, emitted
// after a capture lands so dashboards can update totals without
// polling the diagnostics endpoint.
func (h *Hub) BroadcastStatsUpdate(session models.Session) {
	h.publish(Event{
		Type: EventStatsUpdate,
		Data: StatsUpdateData{SessionID: session.ID, Stats: session.Stats},
	})
}
