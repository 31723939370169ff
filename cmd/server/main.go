// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/heatlens/internal/api"
	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/ingest"
	"github.com/tomtom215/heatlens/internal/logging"
	"github.com/tomtom215/heatlens/internal/models"
	"github.com/tomtom215/heatlens/internal/notify"
	"github.com/tomtom215/heatlens/internal/registry"
	"github.com/tomtom215/heatlens/internal/store"
	"github.com/tomtom215/heatlens/internal/supervisor"
	"github.com/tomtom215/heatlens/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("uploads_dir", cfg.Store.Dir).
		Dur("stale_after", cfg.Ingest.StaleAfter).
		Msg("Configuration loaded")

	st, err := store.New(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}

	hub := notify.NewHub()

	// The registry reports every session end to the dashboard feed,
	// whichever path removed it.
	reg := registry.New(cfg.Ingest.StaleAfter, func(s models.Session, reason registry.EndReason) {
		hub.BroadcastSessionEnded(s, string(reason))
	})

	router := api.NewRouter(reg, st, hub, cfg.Server, ingest.Deps{
		Registry:      reg,
		Store:         st,
		Hub:           hub,
		Ingest:        cfg.Ingest,
		TrackerTuning: cfg.Tracker,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build supervisor tree")
	}

	tree.AddSessionService(services.NewNotifyHubService(hub))
	tree.AddSessionService(services.NewSweeperService(reg, cfg.Ingest.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
