// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package services

import (
	"context"
)

// ContextHub matches the notification hub's RunWithContext method
// without importing the notify package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// NotifyHubService wraps the notification hub as a supervised service.
// The hub's RunWithContext already follows the suture.Service pattern,
// so the wrapper only adds a name for logging.
type NotifyHubService struct {
	hub  ContextHub
	name string
}

// NewNotifyHubService creates a notification hub service wrapper.
func NewNotifyHubService(hub ContextHub) *NotifyHubService {
	return &NotifyHubService{
		hub:  hub,
		name: "notify-hub",
	}
}

// Serve implements suture.Service.
func (s *NotifyHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *NotifyHubService) String() string {
	return s.name
}
