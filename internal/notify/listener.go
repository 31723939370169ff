// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package notify

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/heatlens/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // dashboard listeners only send pings
)

// listenerIDCounter assigns unique, monotonically increasing listener
// ids so broadcast iteration order is deterministic.
var listenerIDCounter atomic.Uint64

// Listener is the middleman between one dashboard WebSocket connection
// and the hub.
type Listener struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Event
}

// NewListener wraps an upgraded connection for the hub.
func NewListener(hub *Hub, conn *websocket.Conn) *Listener {
	return &Listener{
		id:   listenerIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Event, 64),
	}
}

// Start begins the read and write pumps. The caller must have
// registered the listener with the hub.
func (l *Listener) Start() {
	go l.writePump()
	go l.readPump()
}

// readPump drains inbound frames to keep connection-level pings flowing
// and to detect closure. Dashboard listeners are consumers; any JSON
// they send is ignored.
func (l *Listener) readPump() {
	defer func() {
		l.hub.Unregister <- l
		_ = l.conn.Close()
	}()

	l.conn.SetReadLimit(maxMessageSize)
	if err := l.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set listener read deadline")
		return
	}
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := l.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Msg("dashboard listener closed unexpectedly")
			}
			return
		}
	}
}

// writePump pushes hub events to the connection and keeps it alive with
// periodic pings.
func (l *Listener) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = l.conn.Close()
	}()

	for {
		select {
		case event, ok := <-l.send:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = l.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := l.conn.WriteJSON(event); err != nil {
				logging.Debug().Err(err).Msg("failed to write event to dashboard listener")
				return
			}

		case <-ticker.C:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
