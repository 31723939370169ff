// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/heatlens/internal/config"
	"github.com/tomtom215/heatlens/internal/ingest"
	"github.com/tomtom215/heatlens/internal/middleware"
	"github.com/tomtom215/heatlens/internal/notify"
	"github.com/tomtom215/heatlens/internal/registry"
	"github.com/tomtom215/heatlens/internal/store"
)

// healthRateLimit is the permissive per-minute budget for health
// endpoints, generous enough for aggressive monitoring.
const healthRateLimit = 1000

// Router wires the admin API, the metrics endpoint, and both WebSocket
// surfaces onto one chi mux.
type Router struct {
	registry *registry.Registry
	store    *store.Store
	hub      *notify.Hub
	cfg      config.ServerConfig
	ingest   ingest.Deps
}

// NewRouter builds a router over the server-side collaborators.
func NewRouter(reg *registry.Registry, st *store.Store, hub *notify.Hub,
	cfg config.ServerConfig, ingestDeps ingest.Deps) *Router {
	return &Router{
		registry: reg,
		store:    st,
		hub:      hub,
		cfg:      cfg,
		ingest:   ingestDeps,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints get their own permissive rate limit so probes
	// never starve behind dashboard traffic.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(healthRateLimit, router.cfg.RateLimitWindow))
		r.Get("/", router.health)
		r.Get("/live", router.healthLive)
		r.Get("/ready", router.healthReady)
	})

	// Admin query endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimitReqs, router.cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/uploads", router.uploads)
		r.Delete("/session/{id}", router.deleteSession)
		r.Get("/session-diagnostics", router.sessionDiagnostics)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// WebSocket surfaces bypass the HTTP rate limiter; their budgets
	// are connection-level.
	r.Get("/ws/ingest", ingest.Handler(router.ingest))
	r.Get("/ws/admin", router.adminFeed)

	// Saved frames are served directly so the dashboard can render
	// captures without an extra API round trip.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(router.store.Dir())))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	return r
}
