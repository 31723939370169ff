// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
	"github.com/tomtom215/heatlens/internal/tracker"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:3944/ws/ingest", "ingest WebSocket endpoint")
	pageURL := flag.String("url", "https://demo.heatlens.dev/landing", "simulated page URL")
	duration := flag.Duration("duration", 30*time.Second, "how long to generate activity")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *level, Format: "console"})

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Tracker.ServerURL = *serverURL

	t := tracker.New(cfg.Tracker, tracker.Page{
		URL:      *pageURL,
		UserID:   "demo-agent",
		Viewport: models.Viewport{Width: 1920, Height: 1080},
	}, placeholderCapture)

	t.Start()
	logging.Info().Str("session_id", t.SessionID()).Str("server", *serverURL).Msg("Demo session started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deadline := time.After(*duration)
	ticker := time.NewTicker(30 * time.Millisecond)
	defer ticker.Stop()

	// Lissajous walk keeps the pointer moving smoothly across the page.
	start := time.Now()
loop:
	for {
		select {
		case <-sigCh:
			logging.Info().Msg("Interrupted")
			break loop
		case <-deadline:
			break loop
		case now := <-ticker.C:
			elapsed := now.Sub(start).Seconds()
			x := int(960 + 900*math.Sin(elapsed*0.9))
			y := int(540 + 500*math.Sin(elapsed*1.3+math.Pi/4))
			t.RecordMove(x, y, now)
			if rand.Intn(100) == 0 {
				t.RecordClick(x, y, 0, fmt.Sprintf("a.link-%d", rand.Intn(8)), now)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Destroy(ctx)
	logging.Info().Str("session_id", t.SessionID()).Msg("Demo session ended")
}

// placeholderCapture produces a deterministic pseudo-frame. Real hosts
// render the observed surface here; the demo just needs plausible bytes.
func placeholderCapture(ctx context.Context, scale float64) ([]byte, error) {
	size := int(16384 * scale)
	frame := make([]byte, size)
	for i := range frame {
		frame[i] = byte(i * 31)
	}
	return frame, nil
}
