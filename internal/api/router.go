// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plenumlab/plenum/internal/middleware"
)

// Routes builds the chi router for the ops API.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", h.TriggerSync)

		r.Get("/terms", h.Terms)
		r.Route("/terms/{term}", func(r chi.Router) {
			r.Get("/", h.Term)
			r.Get("/clubs", h.Clubs)
			r.Get("/mps", h.MPs)
			r.Get("/sittings", h.Sittings)
			r.Get("/votings", h.Votings)
			r.Get("/processes", h.Processes)
			r.Get("/stats", h.Stats)

			r.Post("/validate", h.Validate)

			r.Get("/analytics/{key}", h.Analytics)
			r.Post("/analytics/recompute", h.Recompute)
		})
	})

	return r
}
