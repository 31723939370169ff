// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
)

// CaptureFunc renders the observed surface at the given scale. Hosts
// supply the implementation; scale 1.0 is full fidelity, lower values
// are the reduced-fidelity fallback.
type CaptureFunc func(ctx context.Context, scale float64) ([]byte, error)

// captureTimeout bounds a single render attempt.
const captureTimeout = 10 * time.Second

// CaptureScheduler decides when a capture fires. Activity arms a
// debounce timer; the timer only arms when the minimum inter-capture
// interval has elapsed and the scheduler is not suspended. An atomic
// single-flight flag guarantees at most one capture runs at a time.
type CaptureScheduler struct {
	capture CaptureFunc
	onImage func(image []byte)

	inFlight atomic.Bool

	mu            sync.Mutex
	timer         *time.Timer
	lastCapture   time.Time
	suspended     bool
	closed        bool
	debounce      time.Duration
	minInterval   time.Duration
	fallbackScale float64
}

// NewCaptureScheduler wires a scheduler to the host capture function
// and the delivery callback invoked with each successful image.
func NewCaptureScheduler(debounce, minInterval time.Duration, fallbackScale float64,
	capture CaptureFunc, onImage func([]byte)) *CaptureScheduler {
	return &CaptureScheduler{
		capture:       capture,
		onImage:       onImage,
		debounce:      debounce,
		minInterval:   minInterval,
		fallbackScale: fallbackScale,
	}
}

// Poke reports page activity. It arms or resets the debounce timer;
// when the quiet period elapses a capture fires. Pokes inside the
// minimum inter-capture interval, while suspended, or after Close are
// ignored.
func (s *CaptureScheduler) Poke() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.suspended {
		return
	}
	if !s.lastCapture.IsZero() && time.Since(s.lastCapture) < s.minInterval {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

// fire runs one capture, taking the single-flight flag first. A second
// timer expiry while a capture is in flight is a no-op.
func (s *CaptureScheduler) fire() {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	if s.closed || s.suspended {
		s.mu.Unlock()
		return
	}
	fallback := s.fallbackScale
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	image, err := s.capture(ctx, 1.0)
	if err != nil && fallback > 0 {
		logging.Debug().Err(err).Float64("scale", fallback).Msg("capture failed, retrying at fallback scale")
		image, err = s.capture(ctx, fallback)
	}
	if err != nil {
		logging.Warn().Err(err).Msg("capture failed, dropping")
		return
	}

	s.mu.Lock()
	s.lastCapture = time.Now()
	s.mu.Unlock()

	s.onImage(image)
}

// Suspend cancels any pending capture and ignores activity until
// Resume. Used when the observed surface is hidden.
func (s *CaptureScheduler) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Resume re-enables scheduling. Captures missed while suspended are not
// replayed; the next activity starts a fresh debounce.
func (s *CaptureScheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
}

// Close cancels timers permanently.
func (s *CaptureScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// SetIntervals applies pushed tuning to subsequent scheduling.
func (s *CaptureScheduler) SetIntervals(debounce, minInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if debounce > 0 {
		s.debounce = debounce
	}
	if minInterval > 0 {
		s.minInterval = minInterval
	}
}
