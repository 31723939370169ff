// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/metrics"
	"github.com/tomtom215/heatlens/internal/models"
)

// Store errors.
var (
	// ErrBadSessionID rejects ids that could escape the uploads directory
	// or break the filename contract.
	ErrBadSessionID = errors.New("store: invalid session id")

	// ErrWriteRejected is returned while the disk-write breaker is open.
	ErrWriteRejected = errors.New("store: write rejected, disk breaker open")
)

// Store writes and lists capture file pairs under a single directory.
type Store struct {
	dir      string
	imageExt string
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

// New creates the uploads directory if needed and returns a Store.
func New(cfg config.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating uploads dir %s: %w", cfg.Dir, err)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "store-writes",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("disk-write breaker state change")
		},
	})

	return &Store{
		dir:      cfg.Dir,
		imageExt: strings.TrimPrefix(cfg.ImageExt, "."),
		breaker:  breaker,
	}, nil
}

// Dir returns the uploads directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Stem returns the shared filename stem for a capture.
func Stem(sessionID string, ts int64) string {
	return fmt.Sprintf("%s_%d", sessionID, ts)
}

// validSessionID rejects ids that are empty or contain filesystem
// metacharacters. Underscores are allowed; the timestamp is always the
// last underscore-delimited segment, so parsing stays unambiguous.
func validSessionID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, "/\\") && !strings.Contains(id, "..")
}

// Save writes the image and its metadata as a file pair and returns the
// image filename. The metadata's ImageFilename and SavedAt fields are
// filled in here.
func (s *Store) Save(sessionID string, ts int64, image []byte, meta models.CaptureMetadata) (string, error) {
	if !validSessionID(sessionID) {
		return "", ErrBadSessionID
	}

	stem := Stem(sessionID, ts)
	imageName := stem + "." + s.imageExt
	metaName := stem + ".json"

	meta.SessionID = sessionID
	meta.Timestamp = ts
	meta.ImageFilename = imageName
	if meta.SavedAt == "" {
		meta.SavedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if meta.Positions == nil {
		meta.Positions = []models.Sample{}
	}
	if meta.ClickPoints == nil {
		meta.ClickPoints = []models.Click{}
	}

	metaBytes, err := json.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("store: encoding metadata for %s: %w", stem, err)
	}

	start := time.Now()
	_, err = s.breaker.Execute(func() (struct{}, error) {
		if err := os.WriteFile(filepath.Join(s.dir, imageName), image, 0o644); err != nil {
			metrics.CapturesFailed.WithLabelValues("image").Inc()
			return struct{}{}, fmt.Errorf("store: writing %s: %w", imageName, err)
		}
		if err := os.WriteFile(filepath.Join(s.dir, metaName), metaBytes, 0o644); err != nil {
			// Known gap: the image file is left behind. Readers ignore
			// images without metadata gracefully.
			metrics.CapturesFailed.WithLabelValues("metadata").Inc()
			return struct{}{}, fmt.Errorf("store: writing %s: %w", metaName, err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CapturesFailed.WithLabelValues("breaker_open").Inc()
			return "", ErrWriteRejected
		}
		return "", err
	}

	metrics.RecordSave(len(image), time.Since(start))
	return imageName, nil
}

// parseStem splits a filename stem into session id and timestamp per the
// naming contract. Returns ok=false for names that don't conform.
func parseStem(stem string) (sessionID string, ts int64, ok bool) {
	idx := strings.LastIndex(stem, "_")
	if idx <= 0 || idx == len(stem)-1 {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(stem[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return stem[:idx], ts, true
}

// List returns all persisted captures grouped by session id. Within a
// group records are ordered newest first; groups are ordered by session
// id for deterministic output. Metadata files without a matching image
// are ignored; images without metadata are listed with nil metadata.
func (s *Store) List() ([]models.SessionUploads, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: reading uploads dir: %w", err)
	}

	imageSuffix := "." + s.imageExt
	groups := make(map[string][]models.UploadRecord)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), imageSuffix) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), imageSuffix)
		sessionID, ts, ok := parseStem(stem)
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		record := models.UploadRecord{
			Filename:  entry.Name(),
			SessionID: sessionID,
			Timestamp: ts,
			Size:      info.Size(),
			Metadata:  s.readMetadata(stem),
		}
		groups[sessionID] = append(groups[sessionID], record)
	}

	result := make([]models.SessionUploads, 0, len(groups))
	for sessionID, records := range groups {
		sort.Slice(records, func(i, j int) bool {
			return records[i].Timestamp > records[j].Timestamp
		})
		result = append(result, models.SessionUploads{
			SessionID: sessionID,
			Count:     len(records),
			Uploads:   records,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SessionID < result[j].SessionID
	})

	return result, nil
}

// readMetadata loads the metadata half of a pair, or nil if absent or
// unreadable. A broken metadata file does not hide the image.
func (s *Store) readMetadata(stem string) *models.CaptureMetadata {
	data, err := os.ReadFile(filepath.Join(s.dir, stem+".json"))
	if err != nil {
		return nil
	}
	meta := &models.CaptureMetadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		logging.Warn().Str("stem", stem).Err(err).Msg("unreadable capture metadata")
		return nil
	}
	return meta
}

// DeleteSession removes every file prefixed {sessionId}_ and returns the
// number of files removed.
func (s *Store) DeleteSession(sessionID string) (int, error) {
	if !validSessionID(sessionID) {
		return 0, ErrBadSessionID
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("store: reading uploads dir: %w", err)
	}

	prefix := sessionID + "_"
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			logging.Error().Str("file", entry.Name()).Err(err).Msg("failed to delete session file")
			continue
		}
		deleted++
	}

	logging.Info().Str("session_id", sessionID).Int("deleted", deleted).Msg("session files deleted")
	return deleted, nil
}
