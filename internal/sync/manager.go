// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package sync orchestrates incremental synchronization from the Sejm API
// into the store, in dependency order: clubs, MPs, sittings, votings with
// their votes, then legislative processes with their stages.
//
// Failure policy: a single id that cannot be fetched or decoded is recorded
// in the run report and skipped; its freshness record is not advanced, so
// the next run retries it. Store writes and sync cache access are
// structural: any failure there aborts the run as fatal.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plenumlab/plenum/internal/cache"
	"github.com/plenumlab/plenum/internal/config"
	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
	"github.com/plenumlab/plenum/internal/sejmapi"
)

// Store is the write surface the pipeline needs. *database.DB satisfies it.
type Store interface {
	UpsertTerm(ctx context.Context, term *models.Term) error
	UpsertClub(ctx context.Context, club *models.Club) error
	UpsertMP(ctx context.Context, mp *models.MP) error
	UpsertSitting(ctx context.Context, sitting *models.Sitting) error
	SaveVoting(ctx context.Context, voting *models.Voting, votes []models.Vote) error
	SaveProcess(ctx context.Context, process *models.Process, stages []models.ProcessStage) error
}

// fatalError marks a structural failure that aborts the whole run.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether a sync error aborted the run rather than being a
// recorded per-id failure.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Manager runs sync operations. One run at a time; TriggerSync from the ops
// API and the periodic service share the same mutex.
type Manager struct {
	store  Store
	client sejmapi.ClientInterface
	fresh  *cache.SyncCache
	cfg    *config.SyncConfig

	syncMu   sync.Mutex
	mu       sync.RWMutex
	lastSync time.Time

	// onTermSynced is invoked after a term's data changed, letting the
	// analytics layer invalidate its caches.
	onTermSynced func(term int)
}

// NewManager creates a sync manager.
func NewManager(store Store, client sejmapi.ClientInterface, fresh *cache.SyncCache, cfg *config.SyncConfig) *Manager {
	return &Manager{
		store:  store,
		client: client,
		fresh:  fresh,
		cfg:    cfg,
	}
}

// OnTermSynced registers a callback invoked with the term number after a run
// that synced at least one entity. Must be set before the manager is used.
func (m *Manager) OnTermSynced(fn func(term int)) {
	m.onTermSynced = fn
}

// LastSyncTime returns when the last successful run finished, zero if none.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// SyncAll syncs the given terms in order. An empty slice falls back to the
// configured terms, then to every term the API lists. Fatal errors stop the
// loop; per-term reports are returned for all terms attempted.
func (m *Manager) SyncAll(ctx context.Context, terms []int, force bool) ([]*models.SyncReport, error) {
	if len(terms) == 0 {
		terms = m.cfg.Terms
	}
	if len(terms) == 0 {
		discovered, err := m.client.Terms(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to discover terms: %w", err)
		}
		for _, t := range discovered {
			terms = append(terms, t.Num)
		}
	}

	var reports []*models.SyncReport
	for _, term := range terms {
		report, err := m.SyncTerm(ctx, term, force)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// SyncTerm runs one full sync pass for a term. The returned report is
// non-nil even on fatal errors and records everything done up to the abort.
func (m *Manager) SyncTerm(ctx context.Context, term int, force bool) (*models.SyncReport, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	runID := uuid.New()
	ctx = logging.ContextWithRunID(ctx, runID.String()[:8])
	log := logging.Ctx(ctx).With().Int("term", term).Bool("force", force).Logger()
	ctx = logging.ContextWithLogger(ctx, log)

	report := &models.SyncReport{
		RunID:   runID,
		Term:    term,
		Forced:  force,
		Started: time.Now().UTC(),
		Counts:  make(map[models.EntityType]models.EntityCounts),
	}
	start := time.Now()
	log.Info().Msg("sync run started")

	err := m.runTerm(ctx, term, force, report)
	if err != nil {
		report.Status = models.SyncFatal
	}
	report.Finalize()

	metrics.SyncRunsTotal.WithLabelValues(string(report.Status)).Inc()
	metrics.SyncRunDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Msg("sync run aborted")
		return report, err
	}

	m.mu.Lock()
	m.lastSync = report.Finished
	m.mu.Unlock()
	metrics.SyncLastSuccessTimestamp.Set(float64(report.Finished.Unix()))

	synced := 0
	for _, c := range report.Counts {
		synced += c.Synced
	}
	if synced > 0 && m.onTermSynced != nil {
		m.onTermSynced(term)
	}

	log.Info().
		Str("status", string(report.Status)).
		Int("synced", synced).
		Int("failed", report.TotalFailed()).
		Dur("elapsed", time.Since(start)).
		Msg("sync run finished")
	return report, nil
}

// runTerm executes the sync stages in dependency order. Any error returned
// here is fatal; per-id problems are recorded in the report instead.
func (m *Manager) runTerm(ctx context.Context, term int, force bool, report *models.SyncReport) error {
	stages := []func() error{
		func() error { return m.syncTermRecord(ctx, term, force, report) },
		func() error { return m.syncClubs(ctx, term, force, report) },
		func() error { return m.syncMPs(ctx, term, force, report) },
		func() error {
			sittings, err := m.syncSittings(ctx, term, force, report)
			if err != nil {
				return err
			}
			return m.syncVotings(ctx, term, force, sittings, report)
		},
		func() error { return m.syncProcesses(ctx, term, force, report) },
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}

// syncTermRecord resolves the term from the API's term list and upserts it.
// A term the API does not know is fatal: nothing below it can be scoped.
func (m *Manager) syncTermRecord(ctx context.Context, term int, force bool, report *models.SyncReport) error {
	payloads, err := m.client.Terms(ctx)
	if err != nil {
		return fatal(fmt.Errorf("failed to list terms: %w", err))
	}

	for i := range payloads {
		if payloads[i].Num != term {
			continue
		}
		id := fmt.Sprintf("%d", term)
		fresh, fp, err := m.checkFresh(ctx, models.EntityTerm, id, &payloads[i], force)
		if err != nil {
			return err
		}
		if fresh {
			m.recordSkip(report, models.EntityTerm)
			return nil
		}

		entity, err := transformTerm(&payloads[i])
		if err != nil {
			m.recordFail(report, models.EntityTerm, id, err)
			return nil
		}
		if err := m.store.UpsertTerm(ctx, entity); err != nil {
			return fatal(err)
		}
		if err := m.fresh.MarkSynced(ctx, string(models.EntityTerm), id, fp); err != nil {
			return fatal(err)
		}
		m.recordSynced(report, models.EntityTerm)
		return nil
	}
	return fatal(fmt.Errorf("term %d is not known to the API", term))
}

func (m *Manager) syncClubs(ctx context.Context, term int, force bool, report *models.SyncReport) error {
	payloads, err := m.client.Clubs(ctx, term)
	if err != nil {
		m.recordFail(report, models.EntityClub, "list", err)
		return nil
	}

	for i := range payloads {
		p := &payloads[i]
		id := clubID(term, p.ID)

		fresh, fp, err := m.checkFresh(ctx, models.EntityClub, id, p, force)
		if err != nil {
			return err
		}
		if fresh {
			m.recordSkip(report, models.EntityClub)
			continue
		}

		if err := m.store.UpsertClub(ctx, transformClub(term, p)); err != nil {
			return fatal(err)
		}
		if err := m.fresh.MarkSynced(ctx, string(models.EntityClub), id, fp); err != nil {
			return fatal(err)
		}
		m.recordSynced(report, models.EntityClub)
	}
	return nil
}

func (m *Manager) syncMPs(ctx context.Context, term int, force bool, report *models.SyncReport) error {
	payloads, err := m.client.MPs(ctx, term)
	if err != nil {
		m.recordFail(report, models.EntityMP, "list", err)
		return nil
	}

	for i := range payloads {
		p := &payloads[i]
		id := mpID(term, p.ID)

		fresh, fp, err := m.checkFresh(ctx, models.EntityMP, id, p, force)
		if err != nil {
			return err
		}
		if fresh {
			m.recordSkip(report, models.EntityMP)
			continue
		}

		if err := m.store.UpsertMP(ctx, transformMP(term, p)); err != nil {
			return fatal(err)
		}
		if err := m.fresh.MarkSynced(ctx, string(models.EntityMP), id, fp); err != nil {
			return fatal(err)
		}
		m.recordSynced(report, models.EntityMP)
	}
	return nil
}

// syncSittings upserts sittings and returns every sitting number in the
// term, fresh or not: the voting stage below needs the full list because a
// sitting's votings can change after the sitting itself stopped changing.
func (m *Manager) syncSittings(ctx context.Context, term int, force bool, report *models.SyncReport) ([]int, error) {
	payloads, err := m.client.Proceedings(ctx, term)
	if err != nil {
		m.recordFail(report, models.EntitySitting, "list", err)
		return nil, nil
	}

	var numbers []int
	seen := make(map[int]bool)
	for i := range payloads {
		p := &payloads[i]
		// number 0 is the API's placeholder for unscheduled proceedings;
		// the list can also repeat a number
		if p.Number <= 0 || seen[p.Number] {
			continue
		}
		seen[p.Number] = true
		numbers = append(numbers, p.Number)

		id := sittingID(term, p.Number)
		fresh, fp, err := m.checkFresh(ctx, models.EntitySitting, id, p, force)
		if err != nil {
			return nil, err
		}
		if fresh {
			m.recordSkip(report, models.EntitySitting)
			continue
		}

		if err := m.store.UpsertSitting(ctx, transformSitting(term, p)); err != nil {
			return nil, fatal(err)
		}
		if err := m.fresh.MarkSynced(ctx, string(models.EntitySitting), id, fp); err != nil {
			return nil, fatal(err)
		}
		m.recordSynced(report, models.EntitySitting)
	}
	return numbers, nil
}

// checkFresh fingerprints a payload and consults the sync cache. Corruption
// is fatal. Returns (fresh, fingerprint, error).
func (m *Manager) checkFresh(ctx context.Context, entity models.EntityType, id string, payload any, force bool) (bool, string, error) {
	fp, err := cache.Fingerprint(payload)
	if err != nil {
		return false, "", fatal(err)
	}
	if force {
		return false, fp, nil
	}
	fresh, err := m.fresh.IsFresh(ctx, string(entity), id, fp)
	if err != nil {
		return false, "", fatal(err)
	}
	return fresh, fp, nil
}

func (m *Manager) recordSynced(report *models.SyncReport, entity models.EntityType) {
	report.Record(entity, 1, 0, 0)
	metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "synced").Inc()
}

func (m *Manager) recordSkip(report *models.SyncReport, entity models.EntityType) {
	report.Record(entity, 0, 1, 0)
	metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "skipped").Inc()
}

func (m *Manager) recordFail(report *models.SyncReport, entity models.EntityType, id string, err error) {
	report.Fail(entity, id, err)
	metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "failed").Inc()
}
