// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package tracker

import (
	"sync"
	"time"

	"github.com/tomtom215/heatlens/internal/models"
)

// EventBuffer accumulates pointer samples and clicks between drains.
// Move samples are throttled to one per throttle window; clicks at the
// same coordinates within the debounce window collapse to one. Both
// slices are capped with oldest-first eviction so a host that never
// drains cannot grow the buffer without bound. All timing decisions use
// the sample timestamps, not the wall clock, so replayed input behaves
// identically.
type EventBuffer struct {
	mu sync.Mutex

	samples []models.Sample
	clicks  []models.Click

	lastMoveTS  int64 // epoch millis of last retained move, 0 when empty
	lastClick   models.Click
	haveClick   bool

	throttle      time.Duration
	clickDebounce time.Duration
	maxAge        time.Duration
	cap           int
}

// NewEventBuffer builds a buffer from the tracker tuning.
func NewEventBuffer(throttle, clickDebounce, maxAge time.Duration, capacity int) *EventBuffer {
	return &EventBuffer{
		throttle:      throttle,
		clickDebounce: clickDebounce,
		maxAge:        maxAge,
		cap:           capacity,
	}
}

// Record retains a move sample unless it falls inside the throttle
// window of the previously retained one. Returns whether the sample was
// kept. Never blocks.
func (b *EventBuffer) Record(s models.Sample) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastMoveTS != 0 && s.Timestamp-b.lastMoveTS < b.throttle.Milliseconds() {
		return false
	}
	b.lastMoveTS = s.Timestamp

	if len(b.samples) >= b.cap {
		// Oldest-first eviction keeps the freshest window of activity.
		b.samples = b.samples[1:]
	}
	b.samples = append(b.samples, s)
	return true
}

// RecordClick retains a click unless it duplicates the previous one at
// the same coordinates within the debounce window. Synthetic double
// events from nested handlers collapse to a single click.
func (b *EventBuffer) RecordClick(c models.Click) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.haveClick &&
		c.X == b.lastClick.X && c.Y == b.lastClick.Y &&
		c.Timestamp-b.lastClick.Timestamp < b.clickDebounce.Milliseconds() {
		return false
	}
	b.lastClick = c
	b.haveClick = true

	if len(b.clicks) >= b.cap {
		b.clicks = b.clicks[1:]
	}
	b.clicks = append(b.clicks, c)
	return true
}

// Drain returns the buffered activity and resets the buffer. Samples
// older than the max age relative to now are dropped; clicks are never
// age-filtered. The returned slices are owned by the caller.
func (b *EventBuffer) Drain(now time.Time) ([]models.Sample, []models.Click) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.maxAge).UnixMilli()
	var samples []models.Sample
	for _, s := range b.samples {
		if s.Timestamp >= cutoff {
			samples = append(samples, s)
		}
	}
	clicks := b.clicks

	b.samples = nil
	b.clicks = nil
	return samples, clicks
}

// Len reports the retained move sample count.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// SetThrottle applies a pushed throttle change to subsequent samples.
func (b *EventBuffer) SetThrottle(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.throttle = d
}
