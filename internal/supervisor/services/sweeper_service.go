// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package services

import (
	"context"
	"time"

	"github.com/tomtom215/heatlens/internal/logging"
)

// Sweeper matches the session registry's eviction method without
// importing the registry package.
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweeperService periodically evicts stale sessions from the registry.
// A session whose tracker vanished without session_end stays in the
// registry until this sweep reclaims it.
type SweeperService struct {
	registry Sweeper
	interval time.Duration
	name     string
}

// NewSweeperService creates a sweeper running at the given interval.
func NewSweeperService(registry Sweeper, interval time.Duration) *SweeperService {
	return &SweeperService{
		registry: registry,
		interval: interval,
		name:     "session-sweeper",
	}
}

// Serve implements suture.Service: one sweep per tick until the context
// is canceled.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if evicted := s.registry.Sweep(now); evicted > 0 {
				logging.Info().Int("evicted", evicted).Msg("stale sessions swept")
			}
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *SweeperService) String() string {
	return s.name
}
