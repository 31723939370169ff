// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

// Package config provides layered configuration loading for Heatlens.
//
// Precedence (highest wins): environment variables > YAML config file >
// built-in defaults. See LoadWithKoanf.
//
// Environment variables are mapped explicitly (e.g. HTTP_PORT to
// server.port); unmapped variables are ignored so unrelated environment
// noise cannot pollute the config. Loaded configuration is validated
// before use; an invalid value fails startup rather than being silently
// clamped.
package config
