// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/models"
)

// Reader is the read surface the handlers need. *database.DB satisfies it.
type Reader interface {
	Ping(ctx context.Context) error
	GetTerm(ctx context.Context, num int) (*models.Term, error)
	ListTerms(ctx context.Context) ([]models.Term, error)
	ListClubs(ctx context.Context, term int) ([]models.Club, error)
	ListMPs(ctx context.Context, term int) ([]models.MP, error)
	ListSittings(ctx context.Context, term int) ([]models.Sitting, error)
	ListVotings(ctx context.Context, term int) ([]models.Voting, error)
	ListProcesses(ctx context.Context, term int) ([]models.Process, error)
	EntityCounts(ctx context.Context, term int) (map[string]int, error)
}

// Syncer triggers sync runs. Implemented by sync.Manager.
type Syncer interface {
	SyncAll(ctx context.Context, terms []int, force bool) ([]*models.SyncReport, error)
	LastSyncTime() time.Time
}

// AnalyticsProvider serves cached analytics. Implemented by
// analytics.Engine.
type AnalyticsProvider interface {
	Cached(ctx context.Context, term int, key string) ([]byte, time.Time, error)
	Recompute(ctx context.Context, term int) (*models.AnalyticsSnapshot, error)
}

// Validator runs data quality checks. Implemented by validation.Checker.
type Validator interface {
	ValidateTerm(ctx context.Context, term int) (*models.ValidationReport, error)
}

// Handler holds the ops API handlers and their dependencies.
type Handler struct {
	db        Reader
	sync      Syncer
	analytics AnalyticsProvider
	validator Validator
	started   time.Time
}

// NewHandler creates the ops API handler set.
func NewHandler(db Reader, sync Syncer, analytics AnalyticsProvider, validator Validator) *Handler {
	return &Handler{
		db:        db,
		sync:      sync,
		analytics: analytics,
		validator: validator,
		started:   time.Now(),
	}
}

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Status            string     `json:"status"`
	DatabaseConnected bool       `json:"database_connected"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
}

// Health reports process health: DuckDB reachability and last sync.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbConnected {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	var lastSync *time.Time
	if h.sync != nil {
		if t := h.sync.LastSyncTime(); !t.IsZero() {
			lastSync = &t
		}
	}

	respond(w, r, httpStatus, healthStatus{
		Status:            status,
		DatabaseConnected: dbConnected,
		LastSyncTime:      lastSync,
		UptimeSeconds:     time.Since(h.started).Seconds(),
	})
}

// Terms lists all synced terms.
func (h *Handler) Terms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.db.ListTerms(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, terms)
}

// Term returns one term by number.
func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	term, ok := termParam(w, r)
	if !ok {
		return
	}
	record, err := h.db.GetTerm(r.Context(), term)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "term not synced")
			return
		}
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, record)
}

// Clubs lists a term's parliamentary clubs.
func (h *Handler) Clubs(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.ListClubs(ctx, term)
	})
}

// MPs lists a term's members of parliament.
func (h *Handler) MPs(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.ListMPs(ctx, term)
	})
}

// Sittings lists a term's sittings.
func (h *Handler) Sittings(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.ListSittings(ctx, term)
	})
}

// Votings lists a term's votings in chronological order.
func (h *Handler) Votings(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.ListVotings(ctx, term)
	})
}

// Processes lists a term's legislative processes.
func (h *Handler) Processes(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.ListProcesses(ctx, term)
	})
}

// Stats returns per-entity row counts for a term.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.listEndpoint(w, r, func(ctx context.Context, term int) (any, error) {
		return h.db.EntityCounts(ctx, term)
	})
}

func (h *Handler) listEndpoint(w http.ResponseWriter, r *http.Request, fetch func(context.Context, int) (any, error)) {
	term, ok := termParam(w, r)
	if !ok {
		return
	}
	data, err := fetch(r.Context(), term)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, data)
}

// analyticsResponse wraps a cached analytics payload with its compute time.
type analyticsResponse struct {
	Key        string          `json:"key"`
	Term       int             `json:"term"`
	ComputedAt time.Time       `json:"computed_at"`
	Result     json.RawMessage `json:"result"`
}

// Analytics serves one cached analytics result by key. A key that was
// never computed is a 404; the client recomputes first.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	term, ok := termParam(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	data, computedAt, err := h.analytics.Cached(r.Context(), term, key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "no cached result for this key; recompute first")
			return
		}
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, analyticsResponse{
		Key:        key,
		Term:       term,
		ComputedAt: computedAt,
		Result:     data,
	})
}

// Recompute derives all analytics for a term from the stored votes.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	term, ok := termParam(w, r)
	if !ok {
		return
	}
	snapshot, err := h.analytics.Recompute(r.Context(), term)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, snapshot)
}

// Validate runs the data quality checks for a term.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	term, ok := termParam(w, r)
	if !ok {
		return
	}
	report, err := h.validator.ValidateTerm(r.Context(), term)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, report)
}

// syncRequest is the optional body of POST /api/v1/sync.
type syncRequest struct {
	Terms []int `json:"terms,omitempty"`
	Force bool  `json:"force,omitempty"`
}

// TriggerSync runs a sync pass and returns the per-term reports. The run
// is synchronous; long syncs are expected to be driven by the scheduler,
// this endpoint exists for operators and tests.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
			return
		}
	}

	reports, err := h.sync.SyncAll(r.Context(), req.Terms, req.Force)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("triggered sync failed")
		respond(w, r, http.StatusInternalServerError, reports)
		return
	}
	respond(w, r, http.StatusOK, reports)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
}

func termParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	term, err := strconv.Atoi(chi.URLParam(r, "term"))
	if err != nil || term < 1 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "term must be a positive integer")
		return 0, false
	}
	return term, true
}
