// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(config.StoreConfig{
		Dir:             t.TempDir(),
		ImageExt:        "webp",
		BreakerFailures: 3,
		BreakerCooldown: time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveProducesFilePair(t *testing.T) {
	s := newTestStore(t)

	meta := models.NewCaptureMetadata("abc123", 1700000000000, "https://example.com",
		[]models.Sample{{X: 1, Y: 2, Timestamp: 1700000000000}}, nil, "", time.Now())

	name, err := s.Save("abc123", 1700000000000, []byte("img-bytes"), meta)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "abc123_1700000000000.webp" {
		t.Errorf("image filename = %q, want abc123_1700000000000.webp", name)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 files, got %d", len(entries))
	}

	metaBytes, err := os.ReadFile(filepath.Join(s.Dir(), "abc123_1700000000000.json"))
	if err != nil {
		t.Fatalf("metadata file missing: %v", err)
	}
	var got models.CaptureMetadata
	if err := json.Unmarshal(metaBytes, &got); err != nil {
		t.Fatalf("metadata unmarshal: %v", err)
	}
	if got.SessionID != "abc123" || got.Timestamp != 1700000000000 {
		t.Errorf("metadata identity mismatch: %+v", got)
	}
	if got.ImageFilename != "abc123_1700000000000.webp" {
		t.Errorf("imageFilename = %q", got.ImageFilename)
	}
	if got.SavedAt == "" {
		t.Error("savedAt not filled in")
	}
	if got.ClickPoints == nil {
		t.Error("clickPoints should encode as empty array, not null")
	}
}

func TestSaveRejectsBadSessionIDs(t *testing.T) {
	s := newTestStore(t)

	bad := []string{"", "../escape", "a/b", `a\b`, "has..dots"}
	for _, id := range bad {
		if _, err := s.Save(id, 100, []byte("x"), models.CaptureMetadata{}); !errors.Is(err, ErrBadSessionID) {
			t.Errorf("Save(%q) error = %v, want ErrBadSessionID", id, err)
		}
	}
}

func TestDeleteSessionRemovesOnlyPrefix(t *testing.T) {
	s := newTestStore(t)

	saves := []struct {
		sid string
		ts  int64
	}{
		{"abc123", 100}, {"abc123", 200}, {"abc1234", 150}, {"other", 300},
	}
	for _, sv := range saves {
		if _, err := s.Save(sv.sid, sv.ts, []byte("x"), models.CaptureMetadata{}); err != nil {
			t.Fatalf("Save(%s, %d): %v", sv.sid, sv.ts, err)
		}
	}

	deleted, err := s.DeleteSession("abc123")
	if err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if deleted != 4 { // two pairs
		t.Errorf("deleted = %d, want 4", deleted)
	}

	groups, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, g := range groups {
		if g.SessionID == "abc123" {
			t.Error("abc123 still listed after deletion")
		}
	}
	if len(groups) != 2 {
		t.Errorf("remaining groups = %d, want 2 (abc1234 and other)", len(groups))
	}
}

func TestListGroupsAndSorts(t *testing.T) {
	s := newTestStore(t)

	for _, sv := range []struct {
		sid string
		ts  int64
	}{{"s1", 100}, {"s1", 200}, {"s2", 150}} {
		if _, err := s.Save(sv.sid, sv.ts, []byte("x"), models.CaptureMetadata{}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	groups, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	if groups[0].SessionID != "s1" || groups[1].SessionID != "s2" {
		t.Fatalf("group order: %s, %s", groups[0].SessionID, groups[1].SessionID)
	}

	s1 := groups[0]
	if s1.Count != 2 || s1.Uploads[0].Timestamp != 200 || s1.Uploads[1].Timestamp != 100 {
		t.Errorf("s1 not newest-first: %+v", s1.Uploads)
	}
	if groups[1].Uploads[0].Timestamp != 150 {
		t.Errorf("s2 timestamp = %d, want 150", groups[1].Uploads[0].Timestamp)
	}
}

func TestListIgnoresOrphanMetadataAndForeignFiles(t *testing.T) {
	s := newTestStore(t)

	// Metadata with no image: must be invisible to readers.
	if err := os.WriteFile(filepath.Join(s.Dir(), "ghost_400.json"), []byte(`{"sessionId":"ghost"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	// Files that don't follow the naming contract.
	for _, name := range []string{"README.txt", "noseparator.webp", "trailing_.webp"} {
		if err := os.WriteFile(filepath.Join(s.Dir(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Image with no metadata: listed, nil metadata.
	if err := os.WriteFile(filepath.Join(s.Dir(), "lone_500.webp"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	groups, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1: %+v", len(groups), groups)
	}
	if groups[0].SessionID != "lone" {
		t.Errorf("sessionID = %q, want lone", groups[0].SessionID)
	}
	if groups[0].Uploads[0].Metadata != nil {
		t.Error("expected nil metadata for orphan image")
	}
}

func TestParseStem(t *testing.T) {
	tests := []struct {
		stem   string
		sid    string
		ts     int64
		wantOK bool
	}{
		{"abc123_1700000000000", "abc123", 1700000000000, true},
		{"has_underscores_42", "has_underscores", 42, true},
		{"nounderscore", "", 0, false},
		{"_100", "", 0, false},
		{"sid_", "", 0, false},
		{"sid_notanumber", "", 0, false},
	}

	for _, tt := range tests {
		sid, ts, ok := parseStem(tt.stem)
		if ok != tt.wantOK {
			t.Errorf("parseStem(%q) ok = %v, want %v", tt.stem, ok, tt.wantOK)
			continue
		}
		if ok && (sid != tt.sid || ts != tt.ts) {
			t.Errorf("parseStem(%q) = (%q, %d), want (%q, %d)", tt.stem, sid, ts, tt.sid, tt.ts)
		}
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	dir := t.TempDir()
	s, err := New(config.StoreConfig{
		Dir:             dir,
		ImageExt:        "webp",
		BreakerFailures: 3,
		BreakerCooldown: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Make the directory unwritable so every save fails.
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	if os.Getuid() == 0 {
		t.Skip("running as root, write permission not enforced")
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Save("sid", int64(i), []byte("x"), models.CaptureMetadata{}); err == nil {
			t.Fatalf("save %d unexpectedly succeeded", i)
		}
	}

	// Breaker is now open: rejection is immediate and typed.
	if _, err := s.Save("sid", 99, []byte("x"), models.CaptureMetadata{}); !errors.Is(err, ErrWriteRejected) {
		t.Errorf("expected ErrWriteRejected after breaker opened, got %v", err)
	}
}
