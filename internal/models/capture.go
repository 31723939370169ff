// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package models

import "time"

// CaptureMetadata is the JSON document persisted next to every image
// file. The two files of a pair share the {sessionId}_{timestamp} stem;
// a metadata file without its image is invalid and ignored by readers.
type CaptureMetadata struct {
	SessionID     string   `json:"sessionId"`
	Timestamp     int64    `json:"timestamp"` // epoch millis, same as the filename stem
	URL           string   `json:"url"`
	Positions     []Sample `json:"positions"`
	ClickPoints   []Click  `json:"clickPoints"`
	SavedAt       string   `json:"savedAt"` // RFC3339, server clock
	ImageFilename string   `json:"imageFilename"`
}

// UploadRecord is the server's view of one persisted capture, derived
// from the filename contract plus the metadata file when present.
type UploadRecord struct {
	Filename  string           `json:"filename"`
	SessionID string           `json:"sessionId"`
	Timestamp int64            `json:"timestamp"`
	Size      int64            `json:"size"`
	Metadata  *CaptureMetadata `json:"metadata,omitempty"`
}

// SessionUploads groups a session's captures, newest first.
type SessionUploads struct {
	SessionID string         `json:"sessionId"`
	Count     int            `json:"count"`
	Uploads   []UploadRecord `json:"uploads"`
}

// NewCaptureMetadata builds the metadata document for a capture at save time.
func NewCaptureMetadata(sessionID string, ts int64, url string, positions []Sample, clicks []Click, imageFilename string, savedAt time.Time) CaptureMetadata {
	if positions == nil {
		positions = []Sample{}
	}
	if clicks == nil {
		clicks = []Click{}
	}
	return CaptureMetadata{
		SessionID:     sessionID,
		Timestamp:     ts,
		URL:           url,
		Positions:     positions,
		ClickPoints:   clicks,
		SavedAt:       savedAt.UTC().Format(time.RFC3339),
		ImageFilename: imageFilename,
	}
}
