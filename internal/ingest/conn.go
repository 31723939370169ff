// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package ingest

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/metrics"
	"github.com/tomtom215/heatlens/internal/models"
	"github.com/tomtom215/heatlens/internal/notify"
	"github.com/tomtom215/heatlens/internal/protocol"
	"github.com/tomtom215/heatlens/internal/registry"
	"github.com/tomtom215/heatlens/internal/store"
)

const writeWait = 10 * time.Second

// Deps bundles the server-side collaborators a connection needs.
type Deps struct {
	Registry *registry.Registry
	Store    *store.Store
	Hub      *notify.Hub
	Ingest   config.IngestConfig

	// TrackerTuning is pushed to the tracker as a config message after
	// session_start. Zero values are omitted on the wire.
	TrackerTuning config.TrackerConfig
}

// Conn handles one tracker connection for its lifetime.
type Conn struct {
	ws   *websocket.Conn
	deps Deps

	// writeMu serializes server replies on the socket.
	writeMu sync.Mutex

	// sessionID is bound by the first session_start on this connection.
	sessionID string

	// pending is the awaiting-image capture context, nil when no image
	// is expected.
	pending *protocol.Screenshot
}

// NewConn wraps an upgraded tracker connection.
func NewConn(ws *websocket.Conn, deps Deps) *Conn {
	return &Conn{ws: ws, deps: deps}
}

// Serve reads frames until the connection errors or closes. Malformed
// input is discarded without closing the connection; only read errors
// terminate the loop. The registry entry survives connection loss and is
// reclaimed by session_end or the staleness sweep.
func (c *Conn) Serve() {
	metrics.IngestConnections.Inc()
	defer func() {
		metrics.IngestConnections.Dec()
		_ = c.ws.Close()
		logging.Debug().Str("session_id", c.sessionID).Msg("tracker connection closed")
	}()

	c.ws.SetReadLimit(c.deps.Ingest.MaxMessageSize)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("session_id", c.sessionID).Msg("tracker connection read error")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			c.handleControl(data)
		case websocket.BinaryMessage:
			c.handleBinary(data)
		}
	}
}

// handleControl routes one JSON control message by type.
func (c *Conn) handleControl(data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		logging.Warn().Err(err).Msg("discarding malformed control message")
		return
	}

	metrics.MessagesReceived.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case protocol.TypeSessionStart:
		c.handleSessionStart(env)
	case protocol.TypeMouseData:
		c.handleMouseData(env)
	case protocol.TypeClickData:
		c.handleClickData(env)
	case protocol.TypeScreenshot, protocol.TypeHeatmapMetadata:
		c.handleScreenshot(env)
	case protocol.TypeSessionEnd:
		c.handleSessionEnd(env)
	case protocol.TypePing:
		c.handlePing(env)
	default:
		metrics.MessagesDiscarded.WithLabelValues("unknown_type").Inc()
		logging.Debug().Str("type", env.Type).Msg("discarding unknown message type")
	}
}

func (c *Conn) handleSessionStart(env protocol.Envelope) {
	msg, err := env.DecodeSessionStart()
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		logging.Warn().Err(err).Msg("discarding invalid session_start")
		return
	}

	c.sessionID = msg.SessionID
	c.deps.Registry.Open(msg.SessionID, c.ws, models.SessionInfo{
		URL:       msg.URL,
		UserID:    msg.UserID,
		Viewport:  msg.Viewport,
		StartedAt: msg.Timestamp,
	})

	if session, ok := c.deps.Registry.Get(msg.SessionID); ok {
		c.deps.Hub.BroadcastSessionStarted(session)
	}

	c.reply(protocol.NewAck(msg.SessionID, time.Now().UnixMilli()))
	c.pushConfig()
}

// pushConfig sends the server's tracker tuning after session_start so
// hosts pick up throttle and interval changes without redeploying.
func (c *Conn) pushConfig() {
	t := c.deps.TrackerTuning
	push := protocol.ConfigPush{
		Type:                 protocol.TypeConfig,
		MoveThrottleMs:       int(t.MoveThrottle / time.Millisecond),
		CaptureDebounceMs:    int(t.CaptureDebounce / time.Millisecond),
		MinCaptureIntervalMs: int(t.MinCaptureInterval / time.Millisecond),
		SendSpacingMs:        int(t.SendSpacing / time.Millisecond),
	}
	c.reply(push)
}

func (c *Conn) handleMouseData(env protocol.Envelope) {
	msg, err := env.DecodeMouseData()
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		logging.Warn().Err(err).Msg("discarding invalid mouse_data")
		return
	}

	c.deps.Registry.AddMouse(msg.SessionID, len(msg.Positions))
	c.deps.Hub.BroadcastNewData(msg.SessionID, "mouse", len(msg.Positions))
}

func (c *Conn) handleClickData(env protocol.Envelope) {
	msg, err := env.DecodeClickData()
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		logging.Warn().Err(err).Msg("discarding invalid click_data")
		return
	}

	c.deps.Registry.AddClicks(msg.SessionID, len(msg.Clicks))
	c.deps.Hub.BroadcastNewData(msg.SessionID, "click", len(msg.Clicks))
}

// handleScreenshot processes an image-announcing message. Inline base64
// image data is saved immediately; otherwise the message becomes the
// pending context for the next binary frame.
func (c *Conn) handleScreenshot(env protocol.Envelope) {
	msg, err := env.DecodeScreenshot()
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		logging.Warn().Err(err).Msg("discarding invalid screenshot metadata")
		return
	}

	if msg.ImageData != "" {
		image, err := protocol.DecodeImageData(msg.ImageData)
		if err != nil {
			metrics.MessagesDiscarded.WithLabelValues("bad_base64").Inc()
			logging.Warn().Err(err).Str("session_id", msg.SessionID).Msg("discarding undecodable inline image")
			c.reply(protocol.NewUploadError("invalid image data"))
			return
		}
		c.saveCapture(msg, image)
		return
	}

	if c.pending != nil {
		logging.Warn().
			Str("session_id", c.pending.SessionID).
			Msg("overwriting pending capture context, image never arrived")
	}
	c.pending = msg
}

// handleBinary treats a binary frame as the image for the pending
// capture context. Orphan frames are discarded defensively.
func (c *Conn) handleBinary(data []byte) {
	metrics.BinaryFramesReceived.Inc()

	if c.pending == nil {
		metrics.MessagesDiscarded.WithLabelValues("orphan_binary").Inc()
		logging.Warn().Int("bytes", len(data)).Msg("discarding binary frame with no pending metadata")
		c.reply(protocol.NewUploadError("binary frame without metadata"))
		return
	}

	msg := c.pending
	c.pending = nil

	if len(data) < c.deps.Ingest.MinImageBytes {
		metrics.MessagesDiscarded.WithLabelValues("undersized").Inc()
		logging.Warn().Int("bytes", len(data)).Str("session_id", msg.SessionID).Msg("discarding undersized image frame")
		c.reply(protocol.NewUploadError("image too small"))
		return
	}

	c.saveCapture(msg, data)
}

// saveCapture persists the image+metadata pair and reports the outcome
// to both the tracker and the dashboard feed.
func (c *Conn) saveCapture(msg *protocol.Screenshot, image []byte) {
	meta := models.NewCaptureMetadata(msg.SessionID, msg.Timestamp, msg.URL,
		msg.Positions, msg.Clicks, "", time.Now())

	filename, err := c.deps.Store.Save(msg.SessionID, msg.Timestamp, image, meta)
	if err != nil {
		logging.Error().Err(err).Str("session_id", msg.SessionID).Msg("capture persistence failed")
		c.reply(protocol.NewUploadError("persistence failed"))
		return
	}

	c.deps.Registry.AddImage(msg.SessionID)
	c.deps.Hub.BroadcastImageUploaded(msg.SessionID, filename, int64(len(image)))
	if session, ok := c.deps.Registry.Get(msg.SessionID); ok {
		c.deps.Hub.BroadcastStatsUpdate(session)
	}
	c.reply(protocol.NewUploadSuccess(filename, int64(len(image))))
}

func (c *Conn) handleSessionEnd(env protocol.Envelope) {
	msg, err := env.DecodeSessionEnd()
	if err != nil {
		metrics.MessagesDiscarded.WithLabelValues("bad_json").Inc()
		return
	}
	// The registry fires the single session_ended notification.
	c.deps.Registry.Close(msg.SessionID, registry.EndReasonClient)
}

func (c *Conn) handlePing(env protocol.Envelope) {
	msg, err := env.DecodePing()
	if err != nil {
		return
	}
	if c.sessionID != "" {
		c.deps.Registry.Touch(c.sessionID)
	}
	c.reply(protocol.NewPong(msg.Timestamp))
}

// reply writes one JSON message back to the tracker. Write failures are
// logged and otherwise ignored; the read loop notices a dead connection.
func (c *Conn) reply(v interface{}) {
	data, err := protocol.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode reply")
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug().Err(err).Msg("failed to write reply to tracker")
	}
}
