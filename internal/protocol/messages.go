// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package protocol

import "github.com/tomtom215/heatlens/internal/models"

// Message types, client to server.
const (
	TypeSessionStart    = "session_start"
	TypeMouseData       = "mouse_data"
	TypeClickData       = "click_data"
	TypeScreenshot      = "screenshot"
	TypeHeatmapMetadata = "heatmap_metadata"
	TypeSessionEnd      = "session_end"
	TypePing            = "ping"
)

// Message types, server to client.
const (
	TypePong          = "pong"
	TypeConfig        = "config"
	TypeConfigUpdate  = "config_update"
	TypeAck           = "ack"
	TypeUploadSuccess = "upload_success"
	TypeUploadError   = "upload_error"
)

// SessionStart announces a new session. A repeated session_start with the
// same id replaces the prior registry entry.
type SessionStart struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId" validate:"required,min=4,max=128"`
	URL       string          `json:"url" validate:"required"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp int64           `json:"timestamp" validate:"required,gt=0"`
	Viewport  models.Viewport `json:"viewport"`
}

// MouseData carries a drained batch of pointer samples.
type MouseData struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId" validate:"required"`
	URL       string          `json:"url,omitempty"`
	Positions []models.Sample `json:"positions" validate:"required,min=1"`
	Timestamp int64           `json:"timestamp" validate:"required,gt=0"`
}

// ClickData carries a drained batch of click samples.
type ClickData struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId" validate:"required"`
	URL       string         `json:"url,omitempty"`
	Clicks    []models.Click `json:"clicks" validate:"required,min=1"`
	Timestamp int64          `json:"timestamp" validate:"required,gt=0"`
}

// Screenshot announces a capture. Either ImageData carries the image
// inline as base64 (optionally data-URL-prefixed), or ImageSize is set
// and the image follows as the next binary frame. The heatmap_metadata
// type shares this shape and always uses the binary path.
type Screenshot struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId" validate:"required"`
	URL       string          `json:"url,omitempty"`
	ImageData string          `json:"imageData,omitempty"`
	ImageSize int             `json:"imageSize,omitempty"`
	Positions []models.Sample `json:"positions,omitempty"`
	Clicks    []models.Click  `json:"clickPoints,omitempty"`
	Timestamp int64           `json:"timestamp" validate:"required,gt=0"`
}

// SessionEnd closes a session explicitly.
type SessionEnd struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
}

// Ping is a bidirectional liveness probe.
type Ping struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Pong answers a Ping.
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Ack confirms a session_start.
type Ack struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// UploadSuccess confirms a persisted capture.
type UploadSuccess struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadError reports a failed or rejected capture. The connection stays
// open; the tracker drops the capture and moves on.
type UploadError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ConfigPush carries tracker tuning from the server, sent on connect
// (type "config") or later (type "config_update"). Zero values mean
// "keep the current setting"; trackers ignore unknown fields.
type ConfigPush struct {
	Type                 string `json:"type"`
	MoveThrottleMs       int    `json:"moveThrottleMs,omitempty"`
	CaptureDebounceMs    int    `json:"captureDebounceMs,omitempty"`
	MinCaptureIntervalMs int    `json:"minCaptureIntervalMs,omitempty"`
	SendSpacingMs        int    `json:"sendSpacingMs,omitempty"`
}

// NewPong builds a pong echoing the given timestamp.
func NewPong(ts int64) Pong {
	return Pong{Type: TypePong, Timestamp: ts}
}

// NewAck builds a session_start acknowledgment.
func NewAck(sessionID string, ts int64) Ack {
	return Ack{Type: TypeAck, SessionID: sessionID, Timestamp: ts}
}

// NewUploadSuccess builds an upload confirmation.
func NewUploadSuccess(filename string, size int64) UploadSuccess {
	return UploadSuccess{Type: TypeUploadSuccess, Filename: filename, Size: size}
}

// NewUploadError builds an upload failure report.
func NewUploadError(msg string) UploadError {
	return UploadError{Type: TypeUploadError, Error: msg}
}
