// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/cache"
	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
)

// Cache keys for stored analytics results.
const (
	KeyPowerIndices = "power_indices"
	KeyCohesion     = "cohesion"
	KeyCoalitions   = "coalitions"
	KeyAgreement    = "agreement"
	KeyTransitions  = "transitions"
	KeyTopics       = "topics"
	KeyPrediction   = "prediction"
	KeySnapshot     = "snapshot"
)

// Store is the persistence surface the engine needs. *database.DB satisfies
// it.
type Store interface {
	ClubSeats(ctx context.Context, term int) (map[string]int, error)
	ClubVotingBreakdown(ctx context.Context, term int) ([]database.ClubVotingStats, error)
	ListProcesses(ctx context.Context, term int) ([]models.Process, error)
	GetAnalyticsResult(ctx context.Context, term int, key string) ([]byte, time.Time, error)
	PutAnalyticsResult(ctx context.Context, term int, key string, data []byte, computedAt time.Time) error
	ClearAnalyticsResults(ctx context.Context, term int) error
}

// Engine computes analytics snapshots and serves cached results. Reads go
// memory cache -> analytics_cache table; recomputes write through both.
type Engine struct {
	store  Store
	memory *cache.Memory
	now    func() time.Time
}

// NewEngine creates an engine over the given store with an in-memory result
// cache of the given TTL.
func NewEngine(store Store, memoryTTL time.Duration) *Engine {
	return &Engine{
		store:  store,
		memory: cache.NewMemory(memoryTTL),
		now:    time.Now,
	}
}

// Recompute derives every metric for a term from the stored votes and writes
// the results through to the analytics cache. Earlier cached results for the
// term are replaced atomically per key; the in-memory layer is cleared so
// readers see the new snapshot immediately.
func (e *Engine) Recompute(ctx context.Context, term int) (*models.AnalyticsSnapshot, error) {
	log := logging.Ctx(ctx).With().Int("term", term).Logger()
	start := e.now()

	seats, err := e.store.ClubSeats(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats for term %d: %w", term, err)
	}
	stats, err := e.store.ClubVotingBreakdown(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to load voting breakdown for term %d: %w", term, err)
	}
	processes, err := e.store.ListProcesses(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to load processes for term %d: %w", term, err)
	}

	totalSeats := 0
	for _, s := range seats {
		totalSeats += s
	}
	quota := MajorityQuota(totalSeats)

	snapshot := &models.AnalyticsSnapshot{
		Term:       term,
		ComputedAt: start.UTC(),
		Complete:   len(seats) > 0 && len(stats) > 0,
	}

	snapshot.PowerIndices = timedCompute(KeyPowerIndices, func() []models.PowerIndexRow {
		return PowerIndices(seats)
	})
	snapshot.Cohesion = timedCompute(KeyCohesion, func() []models.CohesionRow {
		return AverageRice(stats)
	})
	snapshot.Coalitions = timedCompute(KeyCoalitions, func() []models.Coalition {
		return MinWinningCoalitions(seats, quota)
	})
	snapshot.Agreement = timedCompute(KeyAgreement, func() models.AgreementMatrix {
		return BuildAgreementMatrix(stats)
	})
	snapshot.Transitions = timedCompute(KeyTransitions, func() []models.TransitionRow {
		return VotingDynamics(stats)
	})
	snapshot.Topics = timedCompute(KeyTopics, func() []models.TopicCluster {
		return TopicClusters(processes)
	})
	snapshot.Prediction = timedCompute(KeyPrediction, func() *models.PredictionReport {
		return PredictOutcomes(processes)
	})

	results := map[string]any{
		KeyPowerIndices: snapshot.PowerIndices,
		KeyCohesion:     snapshot.Cohesion,
		KeyCoalitions:   snapshot.Coalitions,
		KeyAgreement:    snapshot.Agreement,
		KeyTransitions:  snapshot.Transitions,
		KeyTopics:       snapshot.Topics,
		KeyPrediction:   snapshot.Prediction,
		KeySnapshot:     snapshot,
	}
	for key, result := range results {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s for term %d: %w", key, term, err)
		}
		if err := e.store.PutAnalyticsResult(ctx, term, key, data, snapshot.ComputedAt); err != nil {
			return nil, err
		}
	}

	e.memory.Clear()

	log.Info().
		Int("clubs", len(seats)).
		Int("breakdown_rows", len(stats)).
		Int("processes", len(processes)).
		Bool("complete", snapshot.Complete).
		Dur("elapsed", e.now().Sub(start)).
		Msg("analytics recomputed")

	return snapshot, nil
}

// timedCompute runs a metric computation and records its duration.
func timedCompute[T any](key string, fn func() T) T {
	start := time.Now()
	defer func() {
		metrics.AnalyticsComputeDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

// Cached returns the stored result for a metric key, preferring the
// in-memory layer. Returns database.ErrNotFound (wrapped) when the metric
// has never been computed for the term.
func (e *Engine) Cached(ctx context.Context, term int, key string) ([]byte, time.Time, error) {
	memKey := cache.GenerateKey(key, term)
	if hit, ok := e.memory.Get(memKey); ok {
		metrics.AnalyticsCacheLookups.WithLabelValues(key, "memory").Inc()
		cached := hit.(cachedResult)
		return cached.data, cached.computedAt, nil
	}

	data, computedAt, err := e.store.GetAnalyticsResult(ctx, term, key)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.AnalyticsCacheLookups.WithLabelValues(key, "miss").Inc()
		}
		return nil, time.Time{}, err
	}
	metrics.AnalyticsCacheLookups.WithLabelValues(key, "store").Inc()

	e.memory.Set(memKey, cachedResult{data: data, computedAt: computedAt})
	return data, computedAt, nil
}

// Invalidate drops all cached analytics for a term, forcing the next read to
// recompute or miss. Used after sync runs that changed the term's data.
func (e *Engine) Invalidate(ctx context.Context, term int) error {
	e.memory.Clear()
	return e.store.ClearAnalyticsResults(ctx, term)
}

type cachedResult struct {
	data       []byte
	computedAt time.Time
}
