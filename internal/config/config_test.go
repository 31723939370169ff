// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantSub: "server.port",
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantSub: "server.port",
		},
		{
			name:    "negative message size",
			mutate:  func(c *Config) { c.Ingest.MaxMessageSize = -1 },
			wantSub: "ingest.max_message_size",
		},
		{
			name:    "empty uploads dir",
			mutate:  func(c *Config) { c.Store.Dir = "" },
			wantSub: "store.dir",
		},
		{
			name:    "empty image ext",
			mutate:  func(c *Config) { c.Store.ImageExt = "" },
			wantSub: "store.image_ext",
		},
		{
			name:    "empty server url",
			mutate:  func(c *Config) { c.Tracker.ServerURL = "" },
			wantSub: "tracker.server_url",
		},
		{
			name:    "zero buffer cap",
			mutate:  func(c *Config) { c.Tracker.BufferCap = 0 },
			wantSub: "tracker.buffer_cap",
		},
		{
			name: "min capture interval below debounce",
			mutate: func(c *Config) {
				c.Tracker.CaptureDebounce = 2 * time.Second
				c.Tracker.MinCaptureInterval = time.Second
			},
			wantSub: "min_capture_interval",
		},
		{
			name:    "fallback scale above one",
			mutate:  func(c *Config) { c.Tracker.FallbackScale = 1.5 },
			wantSub: "fallback_scale",
		},
		{
			name:    "zero reconnect attempts",
			mutate:  func(c *Config) { c.Tracker.MaxReconnectAttempts = 0 },
			wantSub: "max_reconnect_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 3944}
	if got := s.Addr(); got != "127.0.0.1:3944" {
		t.Errorf("Addr() = %q, want 127.0.0.1:3944", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"UPLOADS_DIR", "store.dir"},
		{"TRACKER_SERVER_URL", "tracker.server_url"},
		{"TRACKER_MAX_RECONNECTS", "tracker.max_reconnect_attempts"},
		{"SESSION_STALE_AFTER", "ingest.stale_after"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanfEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "4100")
	t.Setenv("UPLOADS_DIR", "frames")
	t.Setenv("TRACKER_MOVE_THROTTLE", "25ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("server.port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Store.Dir != "frames" {
		t.Errorf("store.dir = %q, want frames", cfg.Store.Dir)
	}
	if cfg.Tracker.MoveThrottle != 25*time.Millisecond {
		t.Errorf("tracker.move_throttle = %s, want 25ms", cfg.Tracker.MoveThrottle)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("cors_origins = %v, want two trimmed origins", cfg.Server.CORSOrigins)
	}
}

func TestLoadWithKoanfInvalidEnvFailsValidation(t *testing.T) {
	t.Setenv("HTTP_PORT", "99999")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("expected validation failure for out-of-range port")
	}
}
