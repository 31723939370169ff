// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package models defines the shared data types for Heatlens: sessions,
// interaction samples, capture metadata, and upload records.
//
// Wire timestamps are epoch milliseconds (the tracker's native clock);
// server-side bookkeeping uses time.Time.
package models
