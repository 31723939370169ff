// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
	"github.com/tomtom215/heatlens/internal/protocol"
)

// batchFlushInterval is how often buffered activity ships to the server
// between captures.
const batchFlushInterval = 2 * time.Second

// Page describes the surface a tracker session observes.
type Page struct {
	URL      string
	UserID   string
	Viewport models.Viewport
}

// Tracker is the capture agent facade. New → Start → Destroy; a Tracker
// is single-use, one session per instance.
type Tracker struct {
	cfg  config.TrackerConfig
	page Page

	sessionID string
	buffer    *EventBuffer
	scheduler *CaptureScheduler
	transport *TransportClient

	mu      sync.Mutex
	started bool
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a tracker. capture renders the observed surface; it is
// called from a scheduler goroutine, never concurrently with itself.
func New(cfg config.TrackerConfig, page Page, capture CaptureFunc) *Tracker {
	t := &Tracker{
		cfg:       cfg,
		page:      page,
		sessionID: uuid.NewString(),
		buffer:    NewEventBuffer(cfg.MoveThrottle, cfg.ClickDebounce, cfg.SampleMaxAge, cfg.BufferCap),
		done:      make(chan struct{}),
	}
	t.scheduler = NewCaptureScheduler(cfg.CaptureDebounce, cfg.MinCaptureInterval,
		cfg.FallbackScale, capture, t.onImage)
	t.transport = NewTransportClient(cfg.ServerURL, cfg.SendSpacing, cfg.QueueCap,
		cfg.ReconnectBase, cfg.MaxReconnectAttempts, t.onServerMessage)
	return t
}

// SessionID returns the generated session identifier.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Start connects, announces the session, and begins periodic batch
// flushing. Idempotent.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	t.transport.Start()
	_ = t.transport.Send(protocol.SessionStart{
		Type:      protocol.TypeSessionStart,
		SessionID: t.sessionID,
		URL:       t.page.URL,
		UserID:    t.page.UserID,
		Viewport:  t.page.Viewport,
		Timestamp: time.Now().UnixMilli(),
	})

	t.wg.Add(1)
	go t.flushLoop()

	logging.Info().Str("session_id", t.sessionID).Str("url", t.page.URL).Msg("tracker started")
}

// RecordMove feeds a pointer position. Throttled by the buffer; any
// retained sample counts as activity for capture scheduling and wakes a
// dormant transport.
func (t *Tracker) RecordMove(x, y int, ts time.Time) {
	if t.buffer.Record(models.Sample{X: x, Y: y, Timestamp: ts.UnixMilli()}) {
		t.transport.WakeUp()
		t.scheduler.Poke()
	}
}

// RecordClick feeds a click. Debounced by the buffer; clicks also count
// as activity.
func (t *Tracker) RecordClick(x, y int, button int, target string, ts time.Time) {
	c := models.Click{X: x, Y: y, Timestamp: ts.UnixMilli(), Button: button, Target: target}
	if t.buffer.RecordClick(c) {
		t.transport.WakeUp()
		t.scheduler.Poke()
	}
}

// Suspend pauses capture scheduling, e.g. when the surface is hidden.
// Buffered activity is retained.
func (t *Tracker) Suspend() {
	t.scheduler.Suspend()
}

// Resume re-enables capture scheduling.
func (t *Tracker) Resume() {
	t.scheduler.Resume()
}

// Destroy ends the session: cancels scheduling, flushes remaining
// activity, announces session_end, and closes the transport within the
// context deadline. Idempotent.
func (t *Tracker) Destroy(ctx context.Context) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	started := t.started
	t.mu.Unlock()

	t.scheduler.Close()

	if started {
		close(t.done)
		t.wg.Wait()

		t.flushBatches()
		_ = t.transport.Send(protocol.SessionEnd{
			Type:      protocol.TypeSessionEnd,
			SessionID: t.sessionID,
			Timestamp: time.Now().UnixMilli(),
		})
	}
	t.transport.Close(ctx)

	logging.Info().Str("session_id", t.sessionID).Msg("tracker destroyed")
}

// flushLoop ships buffered batches on a fixed cadence.
func (t *Tracker) flushLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.flushBatches()
		}
	}
}

// flushBatches drains the buffer into mouse_data and click_data
// messages. Empty drains send nothing.
func (t *Tracker) flushBatches() {
	samples, clicks := t.buffer.Drain(time.Now())
	now := time.Now().UnixMilli()

	if len(samples) > 0 {
		_ = t.transport.Send(protocol.MouseData{
			Type:      protocol.TypeMouseData,
			SessionID: t.sessionID,
			URL:       t.page.URL,
			Positions: samples,
			Timestamp: now,
		})
	}
	if len(clicks) > 0 {
		_ = t.transport.Send(protocol.ClickData{
			Type:      protocol.TypeClickData,
			SessionID: t.sessionID,
			URL:       t.page.URL,
			Clicks:    clicks,
			Timestamp: now,
		})
	}
}

// onImage ships a finished capture: the activity drained at capture
// time rides along as the frame's metadata.
func (t *Tracker) onImage(image []byte) {
	samples, clicks := t.buffer.Drain(time.Now())
	meta := &protocol.Screenshot{
		Type:      protocol.TypeScreenshot,
		SessionID: t.sessionID,
		URL:       t.page.URL,
		ImageSize: len(image),
		Positions: samples,
		Clicks:    clicks,
		Timestamp: time.Now().UnixMilli(),
	}
	_ = t.transport.SendCapture(meta, image)
}

// onServerMessage applies server replies; config pushes retune the
// buffer, scheduler, and pacing live.
func (t *Tracker) onServerMessage(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeConfig, protocol.TypeConfigUpdate:
		push, err := env.DecodeConfigPush()
		if err != nil {
			logging.Debug().Err(err).Msg("ignoring malformed config push")
			return
		}
		t.applyConfigPush(push)
	case protocol.TypeUploadError:
		logging.Warn().Str("session_id", t.sessionID).Msg("server rejected an upload")
	}
}

func (t *Tracker) applyConfigPush(push *protocol.ConfigPush) {
	if push.MoveThrottleMs > 0 {
		t.buffer.SetThrottle(time.Duration(push.MoveThrottleMs) * time.Millisecond)
	}
	t.scheduler.SetIntervals(
		time.Duration(push.CaptureDebounceMs)*time.Millisecond,
		time.Duration(push.MinCaptureIntervalMs)*time.Millisecond,
	)
	logging.Info().
		Int("move_throttle_ms", push.MoveThrottleMs).
		Int("capture_debounce_ms", push.CaptureDebounceMs).
		Int("min_capture_interval_ms", push.MinCaptureIntervalMs).
		Msg("applied pushed configuration")
}
