// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/models"
)

type fakeStore struct {
	seats     map[string]int
	breakdown []database.ClubVotingStats
	processes []models.Process
	results   map[string][]byte
	computed  map[string]time.Time
	getCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:  make(map[string][]byte),
		computed: make(map[string]time.Time),
	}
}

func (f *fakeStore) key(term int, key string) string {
	return fmt.Sprintf("%d/%s", term, key)
}

func (f *fakeStore) ClubSeats(_ context.Context, _ int) (map[string]int, error) {
	return f.seats, nil
}

func (f *fakeStore) ClubVotingBreakdown(_ context.Context, _ int) ([]database.ClubVotingStats, error) {
	return f.breakdown, nil
}

func (f *fakeStore) ListProcesses(_ context.Context, _ int) ([]models.Process, error) {
	return f.processes, nil
}

func (f *fakeStore) GetAnalyticsResult(_ context.Context, term int, key string) ([]byte, time.Time, error) {
	f.getCalls++
	data, ok := f.results[f.key(term, key)]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("analytics cache %d/%s: %w", term, key, database.ErrNotFound)
	}
	return data, f.computed[f.key(term, key)], nil
}

func (f *fakeStore) PutAnalyticsResult(_ context.Context, term int, key string, data []byte, computedAt time.Time) error {
	f.results[f.key(term, key)] = data
	f.computed[f.key(term, key)] = computedAt
	return nil
}

func (f *fakeStore) ClearAnalyticsResults(_ context.Context, term int) error {
	for k := range f.results {
		delete(f.results, k)
	}
	return nil
}

func seededStore() *fakeStore {
	store := newFakeStore()
	store.seats = map[string]int{"KO": 157, "PiS": 188, "TD": 65, "NL": 26, "K": 18}
	store.breakdown = []database.ClubVotingStats{
		{VotingID: "v1", Date: day(1), Club: "KO", Yes: 150, No: 5},
		{VotingID: "v1", Date: day(1), Club: "PiS", Yes: 10, No: 170},
		{VotingID: "v2", Date: day(2), Club: "KO", Yes: 140, No: 15},
		{VotingID: "v2", Date: day(2), Club: "PiS", Yes: 160, No: 20},
	}
	passed, failed := true, false
	store.processes = []models.Process{
		{ID: "10_100", TermNum: 10, Number: "100", Title: "o podatku dochodowym od osób fizycznych", Passed: &passed},
		{ID: "10_101", TermNum: 10, Number: "101", Title: "o zmianie ustawy o podatku VAT", Passed: &failed},
		{ID: "10_102", TermNum: 10, Number: "102", Title: "o świadczeniach opieki zdrowotnej"},
	}
	return store
}

func TestRecomputeProducesSnapshot(t *testing.T) {
	store := seededStore()
	engine := NewEngine(store, time.Minute)

	snapshot, err := engine.Recompute(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	if snapshot.Term != 10 || !snapshot.Complete {
		t.Errorf("unexpected snapshot metadata: %+v", snapshot)
	}
	if len(snapshot.PowerIndices) != 5 {
		t.Errorf("got %d power rows, want 5", len(snapshot.PowerIndices))
	}
	if len(snapshot.Cohesion) != 2 {
		t.Errorf("got %d cohesion rows, want 2", len(snapshot.Cohesion))
	}
	if len(snapshot.Coalitions) == 0 {
		t.Error("no coalitions computed")
	}
	if len(snapshot.Topics) == 0 {
		t.Error("no topic clusters computed")
	}
	if snapshot.Prediction == nil || snapshot.Prediction.Samples != 2 {
		t.Errorf("prediction = %+v, want report over 2 decided processes", snapshot.Prediction)
	}
}

func TestRecomputeWritesThroughAllKeys(t *testing.T) {
	store := seededStore()
	engine := NewEngine(store, time.Minute)

	if _, err := engine.Recompute(context.Background(), 10); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	keys := []string{KeyPowerIndices, KeyCohesion, KeyCoalitions, KeyAgreement,
		KeyTransitions, KeyTopics, KeyPrediction, KeySnapshot}
	for _, key := range keys {
		if _, ok := store.results[store.key(10, key)]; !ok {
			t.Errorf("key %s not written through", key)
		}
	}

	var snapshot models.AnalyticsSnapshot
	if err := json.Unmarshal(store.results[store.key(10, KeySnapshot)], &snapshot); err != nil {
		t.Fatalf("stored snapshot does not decode: %v", err)
	}
	if snapshot.Term != 10 {
		t.Errorf("stored snapshot term = %d, want 10", snapshot.Term)
	}
}

func TestRecomputeIncompleteWithoutVotes(t *testing.T) {
	store := newFakeStore()
	store.seats = map[string]int{"KO": 157, "PiS": 188}
	engine := NewEngine(store, time.Minute)

	snapshot, err := engine.Recompute(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if snapshot.Complete {
		t.Error("snapshot with no vote records reported complete")
	}
}

func TestCachedMemoizesStoreReads(t *testing.T) {
	store := seededStore()
	engine := NewEngine(store, time.Minute)
	ctx := context.Background()

	if _, err := engine.Recompute(ctx, 10); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	first, _, err := engine.Cached(ctx, 10, KeyCohesion)
	if err != nil {
		t.Fatalf("first Cached failed: %v", err)
	}
	callsAfterFirst := store.getCalls

	second, _, err := engine.Cached(ctx, 10, KeyCohesion)
	if err != nil {
		t.Fatalf("second Cached failed: %v", err)
	}
	if store.getCalls != callsAfterFirst {
		t.Error("second read hit the store instead of the memory cache")
	}
	if string(first) != string(second) {
		t.Error("memoized result differs from store result")
	}
}

func TestCachedMissingKey(t *testing.T) {
	engine := NewEngine(newFakeStore(), time.Minute)

	_, _, err := engine.Cached(context.Background(), 10, KeyCohesion)
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestInvalidateClearsBothLayers(t *testing.T) {
	store := seededStore()
	engine := NewEngine(store, time.Minute)
	ctx := context.Background()

	if _, err := engine.Recompute(ctx, 10); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if _, _, err := engine.Cached(ctx, 10, KeyCohesion); err != nil {
		t.Fatalf("Cached failed: %v", err)
	}

	if err := engine.Invalidate(ctx, 10); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, _, err := engine.Cached(ctx, 10, KeyCohesion); !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("cached result survived invalidation: %v", err)
	}
}
