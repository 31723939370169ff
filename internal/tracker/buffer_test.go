// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"io"
	"testing"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func newTestBuffer() *EventBuffer {
	return NewEventBuffer(50*time.Millisecond, 40*time.Millisecond, 30*time.Second, 5)
}

func TestRecordThrottlesToOnePerWindow(t *testing.T) {
	b := newTestBuffer()
	base := int64(1_000_000)

	tests := []struct {
		name string
		ts   int64
		want bool
	}{
		{"first sample kept", base, true},
		{"inside window dropped", base + 10, false},
		{"still inside window", base + 49, false},
		{"window boundary kept", base + 50, true},
		{"next window kept", base + 120, true},
	}
	for _, tt := range tests {
		got := b.Record(models.Sample{X: 1, Y: 1, Timestamp: tt.ts})
		if got != tt.want {
			t.Errorf("%s: Record = %v, want %v", tt.name, got, tt.want)
		}
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
}

func TestRecordEvictsOldestAtCapacity(t *testing.T) {
	b := newTestBuffer() // capacity 5

	for i := 0; i < 7; i++ {
		b.Record(models.Sample{X: i, Y: 0, Timestamp: int64(1000 + i*100)})
	}
	if b.Len() != 5 {
		t.Fatalf("Len = %d, want 5", b.Len())
	}

	samples, _ := b.Drain(time.UnixMilli(2000))
	if samples[0].X != 2 {
		t.Errorf("oldest surviving sample X = %d, want 2", samples[0].X)
	}
	if samples[len(samples)-1].X != 6 {
		t.Errorf("newest sample X = %d, want 6", samples[len(samples)-1].X)
	}
}

func TestRecordClickDebouncesDuplicates(t *testing.T) {
	b := newTestBuffer()

	if !b.RecordClick(models.Click{X: 10, Y: 20, Timestamp: 1000}) {
		t.Fatal("first click dropped")
	}
	// Same spot inside the debounce window: synthetic duplicate.
	if b.RecordClick(models.Click{X: 10, Y: 20, Timestamp: 1020}) {
		t.Error("duplicate click retained")
	}
	// Different coordinates are always kept.
	if !b.RecordClick(models.Click{X: 11, Y: 20, Timestamp: 1025}) {
		t.Error("click at new coordinates dropped")
	}
	// Same spot again but past the window.
	if !b.RecordClick(models.Click{X: 11, Y: 20, Timestamp: 1100}) {
		t.Error("click past debounce window dropped")
	}

	_, clicks := b.Drain(time.UnixMilli(2000))
	if len(clicks) != 3 {
		t.Errorf("drained %d clicks, want 3", len(clicks))
	}
}

func TestRecordClickEvictsOldestAtCapacity(t *testing.T) {
	b := newTestBuffer() // capacity 5

	// Distinct coordinates so debounce never fires.
	for i := 0; i < 7; i++ {
		b.RecordClick(models.Click{X: i, Y: 0, Target: "a", Timestamp: int64(1000 + i*100)})
	}

	_, clicks := b.Drain(time.UnixMilli(2000))
	if len(clicks) != 5 {
		t.Fatalf("drained %d clicks, want 5", len(clicks))
	}
	if clicks[0].X != 2 {
		t.Errorf("oldest surviving click X = %d, want 2", clicks[0].X)
	}
	if clicks[len(clicks)-1].X != 6 {
		t.Errorf("newest click X = %d, want 6", clicks[len(clicks)-1].X)
	}
}

func TestDrainDropsExpiredSamplesAndResets(t *testing.T) {
	b := newTestBuffer() // max age 30s

	now := time.UnixMilli(100_000)
	b.Record(models.Sample{X: 1, Y: 1, Timestamp: now.Add(-40 * time.Second).UnixMilli()})
	b.Record(models.Sample{X: 2, Y: 2, Timestamp: now.Add(-10 * time.Second).UnixMilli()})

	samples, _ := b.Drain(now)
	if len(samples) != 1 {
		t.Fatalf("drained %d samples, want 1", len(samples))
	}
	if samples[0].X != 2 {
		t.Errorf("surviving sample X = %d, want 2", samples[0].X)
	}

	samples, clicks := b.Drain(now)
	if len(samples) != 0 || len(clicks) != 0 {
		t.Errorf("second drain returned %d samples, %d clicks, want empty", len(samples), len(clicks))
	}
}

func TestSetThrottleAppliesToSubsequentSamples(t *testing.T) {
	b := newTestBuffer()

	b.Record(models.Sample{X: 1, Y: 1, Timestamp: 1000})
	b.SetThrottle(10 * time.Millisecond)
	if !b.Record(models.Sample{X: 2, Y: 2, Timestamp: 1015}) {
		t.Error("sample inside old window but outside new one dropped")
	}
}
