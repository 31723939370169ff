// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package registry

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testInfo(url string) models.SessionInfo {
	return models.SessionInfo{
		URL:       url,
		Viewport:  models.Viewport{Width: 1280, Height: 720},
		StartedAt: time.Now().UnixMilli(),
	}
}

func TestOpenTouchGet(t *testing.T) {
	r := New(time.Hour, nil)

	r.Open("s1", &fakeConn{}, testInfo("https://example.com"))
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	sess, ok := r.Get("s1")
	if !ok {
		t.Fatal("Get(s1) not found")
	}
	if sess.Info.URL != "https://example.com" {
		t.Errorf("url = %q", sess.Info.URL)
	}

	before := sess.LastActivity
	time.Sleep(5 * time.Millisecond)
	r.Touch("s1")
	sess, _ = r.Get("s1")
	if !sess.LastActivity.After(before) {
		t.Error("Touch did not advance last activity")
	}

	// Unknown ids are harmless.
	r.Touch("nope")
	r.AddImage("nope")
}

func TestStatCounters(t *testing.T) {
	r := New(time.Hour, nil)
	r.Open("s1", nil, testInfo("u"))

	r.AddImage("s1")
	r.AddMouse("s1", 25)
	r.AddClicks("s1", 2)
	r.AddMouse("s1", 5)

	sess, _ := r.Get("s1")
	if sess.Stats.Images != 1 || sess.Stats.MousePoints != 30 || sess.Stats.Clicks != 2 {
		t.Errorf("stats = %+v", sess.Stats)
	}
}

func TestOpenSameIDReplaces(t *testing.T) {
	var (
		mu      sync.Mutex
		reasons []EndReason
	)
	r := New(time.Hour, func(_ models.Session, reason EndReason) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	})

	old := &fakeConn{}
	r.Open("s1", old, testInfo("first"))
	r.Open("s1", &fakeConn{}, testInfo("second"))

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after replacement", r.Len())
	}
	sess, _ := r.Get("s1")
	if sess.Info.URL != "second" {
		t.Errorf("surviving entry url = %q, want second", sess.Info.URL)
	}
	if !old.isClosed() {
		t.Error("displaced connection was not closed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reasons) != 1 || reasons[0] != EndReasonReplaced {
		t.Errorf("end reasons = %v, want [replaced]", reasons)
	}
}

func TestCloseIsIdempotentAndFiresOnce(t *testing.T) {
	calls := 0
	r := New(time.Hour, func(models.Session, EndReason) { calls++ })

	r.Open("s1", nil, testInfo("u"))

	if !r.Close("s1", EndReasonClient) {
		t.Fatal("first Close returned false")
	}
	if r.Close("s1", EndReasonClient) {
		t.Error("second Close returned true")
	}
	if calls != 1 {
		t.Errorf("onEnd called %d times, want 1", calls)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestSweepEvictsStaleEvenWithOpenConnection(t *testing.T) {
	var swept []string
	r := New(30*time.Minute, func(s models.Session, reason EndReason) {
		if reason == EndReasonSwept {
			swept = append(swept, s.ID)
		}
	})

	conn := &fakeConn{}
	r.Open("zombie", conn, testInfo("u"))
	time.Sleep(50 * time.Millisecond)
	r.Open("alive", &fakeConn{}, testInfo("u"))

	// Cutoff falls between the two opens.
	cutoffNow := time.Now().Add(30*time.Minute - 25*time.Millisecond)
	if n := r.Sweep(cutoffNow); n != 1 {
		t.Fatalf("Sweep evicted %d, want 1", n)
	}
	if !conn.isClosed() {
		t.Error("zombie connection left open after sweep")
	}
	if len(swept) != 1 || swept[0] != "zombie" {
		t.Errorf("swept = %v, want [zombie]", swept)
	}
	if _, ok := r.Get("alive"); !ok {
		t.Error("alive session was evicted")
	}
}

func TestSweepNothingStale(t *testing.T) {
	r := New(time.Hour, nil)
	r.Open("s1", nil, testInfo("u"))

	if n := r.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep evicted %d fresh sessions", n)
	}
}
