// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for both the server and the tracker
// client. Each binary reads the sections it needs.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Ingest  IngestConfig  `koanf:"ingest"`
	Store   StoreConfig   `koanf:"store"`
	Tracker TrackerConfig `koanf:"tracker"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins for the admin API ("*" allows all).
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow for
	// the admin API.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IngestConfig holds session-ingestion settings.
type IngestConfig struct {
	// MaxMessageSize caps a single WebSocket frame (control or binary).
	MaxMessageSize int64 `koanf:"max_message_size"`

	// MinImageBytes is the smallest binary payload accepted as an image;
	// anything smaller is treated as malformed and discarded.
	MinImageBytes int `koanf:"min_image_bytes"`

	// StaleAfter is how long a session may be silent before the sweep
	// evicts it, connection or not.
	StaleAfter time.Duration `koanf:"stale_after"`

	// SweepInterval is the period of the background staleness sweep.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Dir is the directory receiving image+metadata file pairs.
	Dir string `koanf:"dir"`

	// ImageExt is the extension for image files, without the dot.
	ImageExt string `koanf:"image_ext"`

	// BreakerFailures is the consecutive disk-write failure count that
	// opens the write breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerCooldown is how long the breaker stays open before allowing
	// a probe write.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// TrackerConfig holds client-side capture settings.
type TrackerConfig struct {
	// ServerURL is the WebSocket endpoint of the ingestion server.
	ServerURL string `koanf:"server_url"`

	// MoveThrottle is the minimum spacing between retained move samples.
	MoveThrottle time.Duration `koanf:"move_throttle"`

	// BufferCap is the maximum retained sample count before oldest-first
	// eviction.
	BufferCap int `koanf:"buffer_cap"`

	// SampleMaxAge drops samples older than this on drain.
	SampleMaxAge time.Duration `koanf:"sample_max_age"`

	// ClickDebounce collapses duplicate synthetic clicks within this window.
	ClickDebounce time.Duration `koanf:"click_debounce"`

	// CaptureDebounce is the quiet period after activity before a capture
	// fires; further activity resets it.
	CaptureDebounce time.Duration `koanf:"capture_debounce"`

	// MinCaptureInterval is the floor between consecutive captures,
	// enforced independently of the debounce.
	MinCaptureInterval time.Duration `koanf:"min_capture_interval"`

	// FallbackScale is the reduced-fidelity scale used for the single
	// retry after a failed capture. 0 disables the fallback attempt.
	FallbackScale float64 `koanf:"fallback_scale"`

	// SendSpacing is the minimum delay between outbound transmissions.
	SendSpacing time.Duration `koanf:"send_spacing"`

	// QueueCap bounds the outbound queue while disconnected.
	QueueCap int `koanf:"queue_cap"`

	// ReconnectBase is the first reconnect backoff delay; it doubles on
	// each consecutive failure.
	ReconnectBase time.Duration `koanf:"reconnect_base"`

	// MaxReconnectAttempts stops the reconnect cycle after this many
	// consecutive failures; WakeUp restarts it.
	MaxReconnectAttempts int `koanf:"max_reconnect_attempts"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. These are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3944,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Ingest: IngestConfig{
			MaxMessageSize: 8 << 20, // 8 MB frames; screenshots are large
			MinImageBytes:  100,
			StaleAfter:     time.Hour,
			SweepInterval:  10 * time.Minute,
		},
		Store: StoreConfig{
			Dir:             "uploads",
			ImageExt:        "webp",
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Tracker: TrackerConfig{
			ServerURL:            "ws://localhost:3944/ws/ingest",
			MoveThrottle:         50 * time.Millisecond,
			BufferCap:            500,
			SampleMaxAge:         30 * time.Second,
			ClickDebounce:        40 * time.Millisecond,
			CaptureDebounce:      time.Second,
			MinCaptureInterval:   5 * time.Second,
			FallbackScale:        0.5,
			SendSpacing:          100 * time.Millisecond,
			QueueCap:             256,
			ReconnectBase:        2 * time.Second,
			MaxReconnectAttempts: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. Returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Ingest.MaxMessageSize <= 0 {
		return fmt.Errorf("ingest.max_message_size must be positive, got %d", c.Ingest.MaxMessageSize)
	}
	if c.Ingest.MinImageBytes < 0 {
		return fmt.Errorf("ingest.min_image_bytes must not be negative, got %d", c.Ingest.MinImageBytes)
	}
	if c.Ingest.StaleAfter <= 0 {
		return fmt.Errorf("ingest.stale_after must be positive, got %s", c.Ingest.StaleAfter)
	}
	if c.Ingest.SweepInterval <= 0 {
		return fmt.Errorf("ingest.sweep_interval must be positive, got %s", c.Ingest.SweepInterval)
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir must not be empty")
	}
	if c.Store.ImageExt == "" {
		return fmt.Errorf("store.image_ext must not be empty")
	}
	if c.Tracker.ServerURL == "" {
		return fmt.Errorf("tracker.server_url must not be empty")
	}
	if c.Tracker.MoveThrottle <= 0 {
		return fmt.Errorf("tracker.move_throttle must be positive, got %s", c.Tracker.MoveThrottle)
	}
	if c.Tracker.BufferCap <= 0 {
		return fmt.Errorf("tracker.buffer_cap must be positive, got %d", c.Tracker.BufferCap)
	}
	if c.Tracker.CaptureDebounce <= 0 {
		return fmt.Errorf("tracker.capture_debounce must be positive, got %s", c.Tracker.CaptureDebounce)
	}
	if c.Tracker.MinCaptureInterval < c.Tracker.CaptureDebounce {
		return fmt.Errorf("tracker.min_capture_interval %s must not be below capture_debounce %s",
			c.Tracker.MinCaptureInterval, c.Tracker.CaptureDebounce)
	}
	if c.Tracker.FallbackScale < 0 || c.Tracker.FallbackScale > 1 {
		return fmt.Errorf("tracker.fallback_scale %g out of range 0-1", c.Tracker.FallbackScale)
	}
	if c.Tracker.QueueCap <= 0 {
		return fmt.Errorf("tracker.queue_cap must be positive, got %d", c.Tracker.QueueCap)
	}
	if c.Tracker.ReconnectBase <= 0 {
		return fmt.Errorf("tracker.reconnect_base must be positive, got %s", c.Tracker.ReconnectBase)
	}
	if c.Tracker.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("tracker.max_reconnect_attempts must be positive, got %d", c.Tracker.MaxReconnectAttempts)
	}
	return nil
}
