// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// captureRecorder counts capture attempts and delivered images.
type captureRecorder struct {
	mu       sync.Mutex
	attempts []float64 // scales in call order
	fail     int       // fail this many leading attempts
	block    chan struct{}

	delivered atomic.Int32
}

func (r *captureRecorder) capture(ctx context.Context, scale float64) ([]byte, error) {
	r.mu.Lock()
	r.attempts = append(r.attempts, scale)
	n := len(r.attempts)
	fail := r.fail
	block := r.block
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if n <= fail {
		return nil, errors.New("render failed")
	}
	return []byte("frame"), nil
}

func (r *captureRecorder) onImage([]byte) {
	r.delivered.Add(1)
}

func (r *captureRecorder) attemptScales() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.attempts...)
}

func waitForDelivery(t *testing.T, r *captureRecorder, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for r.delivered.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("delivered %d captures, want %d", r.delivered.Load(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDebounceFiresOnceAfterQuietPeriod(t *testing.T) {
	rec := &captureRecorder{}
	s := NewCaptureScheduler(20*time.Millisecond, time.Hour, 0.5, rec.capture, rec.onImage)
	defer s.Close()

	// A burst of pokes resets the timer each time; only one capture
	// fires once the activity stops.
	for i := 0; i < 5; i++ {
		s.Poke()
		time.Sleep(5 * time.Millisecond)
	}
	waitForDelivery(t, rec, 1)

	time.Sleep(50 * time.Millisecond)
	if got := rec.delivered.Load(); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}
	if scales := rec.attemptScales(); len(scales) != 1 || scales[0] != 1.0 {
		t.Errorf("attempt scales = %v, want [1.0]", scales)
	}
}

func TestMinIntervalGatesNextCapture(t *testing.T) {
	rec := &captureRecorder{}
	s := NewCaptureScheduler(5*time.Millisecond, time.Hour, 0, rec.capture, rec.onImage)
	defer s.Close()

	s.Poke()
	waitForDelivery(t, rec, 1)

	// Inside the minimum interval further pokes must not arm a capture.
	s.Poke()
	time.Sleep(30 * time.Millisecond)
	if got := rec.delivered.Load(); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}
}

func TestSingleFlightWhileCaptureInProgress(t *testing.T) {
	rec := &captureRecorder{block: make(chan struct{})}
	s := NewCaptureScheduler(5*time.Millisecond, 0, 0, rec.capture, rec.onImage)
	defer s.Close()

	s.Poke()
	// Wait for the first capture to start and block.
	deadline := time.After(2 * time.Second)
	for len(rec.attemptScales()) == 0 {
		select {
		case <-deadline:
			t.Fatal("capture never started")
		case <-time.After(2 * time.Millisecond):
		}
	}

	// Further pokes expire their debounce while the capture blocks.
	s.Poke()
	time.Sleep(20 * time.Millisecond)
	close(rec.block)
	waitForDelivery(t, rec, 1)

	time.Sleep(20 * time.Millisecond)
	if got := len(rec.attemptScales()); got != 1 {
		t.Errorf("capture attempts = %d, want 1", got)
	}
}

func TestFallbackScaleRetryAfterFailure(t *testing.T) {
	rec := &captureRecorder{fail: 1}
	s := NewCaptureScheduler(5*time.Millisecond, time.Hour, 0.5, rec.capture, rec.onImage)
	defer s.Close()

	s.Poke()
	waitForDelivery(t, rec, 1)

	scales := rec.attemptScales()
	if len(scales) != 2 || scales[0] != 1.0 || scales[1] != 0.5 {
		t.Errorf("attempt scales = %v, want [1.0 0.5]", scales)
	}
}

func TestFailureAfterFallbackIsDropped(t *testing.T) {
	rec := &captureRecorder{fail: 2}
	s := NewCaptureScheduler(5*time.Millisecond, time.Hour, 0.5, rec.capture, rec.onImage)
	defer s.Close()

	s.Poke()
	time.Sleep(50 * time.Millisecond)

	if got := rec.delivered.Load(); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
	if got := len(rec.attemptScales()); got != 2 {
		t.Errorf("capture attempts = %d, want 2 (original plus fallback)", got)
	}
}

func TestSuspendCancelsPendingAndResumeStartsClean(t *testing.T) {
	rec := &captureRecorder{}
	s := NewCaptureScheduler(10*time.Millisecond, 0, 0, rec.capture, rec.onImage)
	defer s.Close()

	s.Poke()
	s.Suspend()
	time.Sleep(30 * time.Millisecond)
	if got := rec.delivered.Load(); got != 0 {
		t.Fatalf("delivered = %d after suspend, want 0", got)
	}

	// Resume does not replay the cancelled capture.
	s.Resume()
	time.Sleep(30 * time.Millisecond)
	if got := rec.delivered.Load(); got != 0 {
		t.Fatalf("delivered = %d after resume without activity, want 0", got)
	}

	s.Poke()
	waitForDelivery(t, rec, 1)
}

func TestCloseStopsScheduling(t *testing.T) {
	rec := &captureRecorder{}
	s := NewCaptureScheduler(10*time.Millisecond, 0, 0, rec.capture, rec.onImage)

	s.Poke()
	s.Close()
	time.Sleep(30 * time.Millisecond)
	if got := rec.delivered.Load(); got != 0 {
		t.Errorf("delivered = %d after close, want 0", got)
	}

	s.Poke()
	time.Sleep(30 * time.Millisecond)
	if got := rec.delivered.Load(); got != 0 {
		t.Errorf("delivered = %d after poke on closed scheduler, want 0", got)
	}
}
