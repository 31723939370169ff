// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

/*
Package logging provides centralized zerolog-based logging for Heatlens.

All components log through the single global logger configured here:

	logging.Init(logging.Config{Level: "info", Format: "json"})
	logging.Info().Str("session_id", id).Msg("session opened")

Always terminate log chains with .Msg() or .Send(); a chain without a
terminator is never emitted.

# Context correlation

Request-scoped logging attaches correlation and request ids carried in
the context:

	ctx = logging.ContextWithRequestID(ctx, id)
	logging.Ctx(ctx).Info().Msg("handled")

# slog bridge

NewSlogLogger adapts the global zerolog logger to *slog.Logger for
libraries that speak log/slog, such as the supervision tree's event
hook.
*/
package logging
