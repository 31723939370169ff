// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package models

import "time"

// Viewport is the tracked page's visible area in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SessionInfo is the immutable part of a session, supplied at session_start.
type SessionInfo struct {
	URL       string   `json:"url"`
	UserID    string   `json:"userId,omitempty"`
	Viewport  Viewport `json:"viewport"`
	StartedAt int64    `json:"timestamp"` // epoch millis
}

// SessionStats are the per-session counters mutated by every message.
type SessionStats struct {
	Images      int `json:"images"`
	MousePoints int `json:"mousePoints"`
	Clicks      int `json:"clicks"`
}

// Session is one tracked browsing session as the registry sees it.
type Session struct {
	ID           string       `json:"sessionId"`
	Info         SessionInfo  `json:"info"`
	Stats        SessionStats `json:"stats"`
	OpenedAt     time.Time    `json:"openedAt"`
	LastActivity time.Time    `json:"lastActivity"`
}

// Sample is one pointer position observation.
type Sample struct {
	X         int   `json:"x"`
	Y         int   `json:"y"`
	Timestamp int64 `json:"timestamp"` // epoch millis
}

// Click is one logical click, with element context for heatmap grouping.
type Click struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Timestamp int64  `json:"timestamp"` // epoch millis
	Button    int    `json:"button"`
	Target    string `json:"target,omitempty"` // tag, optionally tag#id or tag.class
}

// Millis converts a time to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
