// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plenumlab/plenum/internal/config"
	"github.com/plenumlab/plenum/internal/models"
)

// testDBSemaphore serializes database creation; concurrent DuckDB CGO setup
// can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{Path: "", MaxMemory: "500MB", Threads: 2})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

func seedTerm(t *testing.T, db *DB, num int) {
	t.Helper()
	err := db.UpsertTerm(context.Background(), &models.Term{
		Num:      num,
		FromDate: time.Date(2023, 11, 13, 0, 0, 0, 0, time.UTC),
		Current:  true,
	})
	if err != nil {
		t.Fatalf("failed to seed term: %v", err)
	}
}

func TestUpsertTermIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	term := &models.Term{Num: 10, FromDate: time.Date(2023, 11, 13, 0, 0, 0, 0, time.UTC), Current: true}
	for i := 0; i < 2; i++ {
		if err := db.UpsertTerm(ctx, term); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	terms, err := db.ListTerms(ctx)
	if err != nil {
		t.Fatalf("ListTerms failed: %v", err)
	}
	if len(terms) != 1 {
		t.Fatalf("got %d terms, want 1", len(terms))
	}
	if !terms[0].Current {
		t.Error("current flag lost on re-upsert")
	}
}

func TestGetTermNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetTerm(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpsertClubUpdatesInPlace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	club := &models.Club{ID: "10_KO", TermNum: 10, Abbr: "KO", Name: "Koalicja Obywatelska", MembersCount: 155}
	if err := db.UpsertClub(ctx, club); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	club.MembersCount = 157
	if err := db.UpsertClub(ctx, club); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	clubs, err := db.ListClubs(ctx, 10)
	if err != nil {
		t.Fatalf("ListClubs failed: %v", err)
	}
	if len(clubs) != 1 {
		t.Fatalf("got %d clubs, want 1", len(clubs))
	}
	if clubs[0].MembersCount != 157 {
		t.Errorf("members_count = %d, want 157", clubs[0].MembersCount)
	}
}

func TestUpsertSittingRoundTripsDates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	sitting := &models.Sitting{
		ID: "10_23", TermNum: 10, Number: 23,
		Dates: []string{"2024-03-06", "2024-03-07", "2024-03-08"},
	}
	if err := db.UpsertSitting(ctx, sitting); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	sittings, err := db.ListSittings(ctx, 10)
	if err != nil {
		t.Fatalf("ListSittings failed: %v", err)
	}
	if len(sittings) != 1 || len(sittings[0].Dates) != 3 {
		t.Fatalf("unexpected sittings: %+v", sittings)
	}
	if sittings[0].Dates[1] != "2024-03-07" {
		t.Errorf("dates not preserved: %v", sittings[0].Dates)
	}
}

func TestSaveVotingReplacesVoteSet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	voting := &models.Voting{
		ID: "10_23_45", SittingID: "10_23", TermNum: 10, SittingNum: 23, VotingNum: 45,
		Date: time.Date(2024, 3, 7, 16, 12, 0, 0, time.UTC), Title: "Ustawa",
		Yes: 2, No: 1,
	}
	votes := []models.Vote{
		{ID: "10_23_45_1", VotingID: "10_23_45", MPID: "10_1", Club: strPtr("KO"), Choice: models.VoteYes},
		{ID: "10_23_45_2", VotingID: "10_23_45", MPID: "10_2", Club: strPtr("KO"), Choice: models.VoteYes},
		{ID: "10_23_45_3", VotingID: "10_23_45", MPID: "10_3", Club: strPtr("PiS"), Choice: models.VoteNo},
	}
	if err := db.SaveVoting(ctx, voting, votes); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Re-save with a corrected, smaller vote set
	voting.Yes = 1
	if err := db.SaveVoting(ctx, voting, votes[:2]); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	counts, err := db.CastVoteCounts(ctx, 10)
	if err != nil {
		t.Fatalf("CastVoteCounts failed: %v", err)
	}
	if counts["10_23_45"][models.VoteYes] != 2 {
		t.Errorf("yes count = %d, want 2", counts["10_23_45"][models.VoteYes])
	}
	if counts["10_23_45"][models.VoteNo] != 0 {
		t.Errorf("stale NO vote survived re-save: %v", counts["10_23_45"])
	}
}

func TestClubVotingBreakdownAggregatesDecisiveVotes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	voting := &models.Voting{
		ID: "10_1_1", SittingID: "10_1", TermNum: 10, SittingNum: 1, VotingNum: 1,
		Date: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), Title: "Test",
	}
	votes := []models.Vote{
		{ID: "10_1_1_1", VotingID: "10_1_1", MPID: "10_1", Club: strPtr("KO"), Choice: models.VoteYes},
		{ID: "10_1_1_2", VotingID: "10_1_1", MPID: "10_2", Club: strPtr("KO"), Choice: models.VoteYes},
		{ID: "10_1_1_3", VotingID: "10_1_1", MPID: "10_3", Club: strPtr("KO"), Choice: models.VoteNo},
		{ID: "10_1_1_4", VotingID: "10_1_1", MPID: "10_4", Club: strPtr("KO"), Choice: models.VoteAbstain},
		{ID: "10_1_1_5", VotingID: "10_1_1", MPID: "10_5", Club: nil, Choice: models.VoteYes},
	}
	if err := db.SaveVoting(ctx, voting, votes); err != nil {
		t.Fatalf("SaveVoting failed: %v", err)
	}

	stats, err := db.ClubVotingBreakdown(ctx, 10)
	if err != nil {
		t.Fatalf("ClubVotingBreakdown failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d rows, want 1 (clubless vote must be excluded): %+v", len(stats), stats)
	}
	s := stats[0]
	if s.Club != "KO" || s.Yes != 2 || s.No != 1 {
		t.Errorf("unexpected breakdown: %+v", s)
	}
}

func TestClubSeatsCountsActiveMPs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	mps := []models.MP{
		{ID: "10_1", TermNum: 10, MPID: 1, FirstName: "Anna", LastName: "Kowalska", Club: strPtr("KO"), Active: true},
		{ID: "10_2", TermNum: 10, MPID: 2, FirstName: "Jan", LastName: "Nowak", Club: strPtr("KO"), Active: true},
		{ID: "10_3", TermNum: 10, MPID: 3, FirstName: "Piotr", LastName: "Wiśniewski", Club: strPtr("PiS"), Active: true},
		{ID: "10_4", TermNum: 10, MPID: 4, FirstName: "Maria", LastName: "Wójcik", Club: strPtr("KO"), Active: false},
		{ID: "10_5", TermNum: 10, MPID: 5, FirstName: "Adam", LastName: "Lewandowski", Club: nil, Active: true},
	}
	for i := range mps {
		if err := db.UpsertMP(ctx, &mps[i]); err != nil {
			t.Fatalf("UpsertMP failed: %v", err)
		}
	}

	seats, err := db.ClubSeats(ctx, 10)
	if err != nil {
		t.Fatalf("ClubSeats failed: %v", err)
	}
	if seats["KO"] != 2 {
		t.Errorf("KO seats = %d, want 2 (inactive MP excluded)", seats["KO"])
	}
	if seats["PiS"] != 1 {
		t.Errorf("PiS seats = %d, want 1", seats["PiS"])
	}
}

func TestOrphanVoteIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	mp := &models.MP{ID: "10_1", TermNum: 10, MPID: 1, FirstName: "Anna", LastName: "Kowalska", Active: true}
	if err := db.UpsertMP(ctx, mp); err != nil {
		t.Fatalf("UpsertMP failed: %v", err)
	}
	voting := &models.Voting{
		ID: "10_1_1", SittingID: "10_1", TermNum: 10, SittingNum: 1, VotingNum: 1,
		Date: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), Title: "Test",
	}
	votes := []models.Vote{
		{ID: "10_1_1_1", VotingID: "10_1_1", MPID: "10_1", Choice: models.VoteYes},
		{ID: "10_1_1_999", VotingID: "10_1_1", MPID: "10_999", Choice: models.VoteNo},
	}
	if err := db.SaveVoting(ctx, voting, votes); err != nil {
		t.Fatalf("SaveVoting failed: %v", err)
	}

	orphans, err := db.OrphanVoteIDs(ctx, 10)
	if err != nil {
		t.Fatalf("OrphanVoteIDs failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0] != "10_1_1_999" {
		t.Errorf("got %v, want [10_1_1_999]", orphans)
	}
}

func TestMPsWithUnknownClub(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	club := &models.Club{ID: "10_KO", TermNum: 10, Abbr: "KO", Name: "Koalicja Obywatelska"}
	if err := db.UpsertClub(ctx, club); err != nil {
		t.Fatalf("UpsertClub failed: %v", err)
	}
	mps := []models.MP{
		{ID: "10_1", TermNum: 10, MPID: 1, FirstName: "Anna", LastName: "Kowalska", Club: strPtr("KO"), Active: true},
		{ID: "10_2", TermNum: 10, MPID: 2, FirstName: "Jan", LastName: "Nowak", Club: strPtr("XYZ"), Active: true},
	}
	for i := range mps {
		if err := db.UpsertMP(ctx, &mps[i]); err != nil {
			t.Fatalf("UpsertMP failed: %v", err)
		}
	}

	unknown, err := db.MPsWithUnknownClub(ctx, 10)
	if err != nil {
		t.Fatalf("MPsWithUnknownClub failed: %v", err)
	}
	if len(unknown) != 1 || unknown[0] != "10_2" {
		t.Errorf("got %v, want [10_2]", unknown)
	}
}

func TestSaveProcessReplacesStages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	process := &models.Process{
		ID: "10_100", TermNum: 10, Number: "100", Title: "Projekt ustawy",
		DocumentType:     strPtr("projekt ustawy"),
		DocumentTypeEnum: strPtr("BILL"),
	}
	stages := []models.ProcessStage{
		{ID: "10_100_0", ProcessID: "10_100", Index: 0, StageName: "I czytanie"},
		{ID: "10_100_1", ProcessID: "10_100", Index: 1, StageName: "II czytanie"},
		{ID: "10_100_2", ProcessID: "10_100", Index: 2, StageName: "III czytanie", VotingID: strPtr("10_23_45")},
	}
	if err := db.SaveProcess(ctx, process, stages); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := db.SaveProcess(ctx, process, stages[:2]); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := db.ListProcessStages(ctx, "10_100")
	if err != nil {
		t.Fatalf("ListProcessStages failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stages, want 2", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Errorf("stages out of order: %+v", got)
	}

	procs, err := db.ListProcesses(ctx, 10)
	if err != nil {
		t.Fatalf("ListProcesses failed: %v", err)
	}
	if len(procs) != 1 {
		t.Fatalf("got %d processes, want 1", len(procs))
	}
	if procs[0].DocumentTypeEnum == nil || *procs[0].DocumentTypeEnum != "BILL" {
		t.Errorf("document type enum = %v, want BILL", procs[0].DocumentTypeEnum)
	}
}

func TestSyncCacheRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetSyncCacheEntry(ctx, "voting", "10_23_45")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound for missing entry", err)
	}

	entry := &models.SyncCacheEntry{
		EntityType:  "voting",
		ExternalID:  "10_23_45",
		Fingerprint: "abc123",
		SyncedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := db.PutSyncCacheEntry(ctx, entry); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := db.GetSyncCacheEntry(ctx, "voting", "10_23_45")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Fingerprint != "abc123" {
		t.Errorf("fingerprint = %q, want abc123", got.Fingerprint)
	}

	entry.Fingerprint = "def456"
	if err := db.PutSyncCacheEntry(ctx, entry); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	got, err = db.GetSyncCacheEntry(ctx, "voting", "10_23_45")
	if err != nil {
		t.Fatalf("get after replace failed: %v", err)
	}
	if got.Fingerprint != "def456" {
		t.Errorf("fingerprint = %q, want def456", got.Fingerprint)
	}

	if err := db.DeleteSyncCacheEntry(ctx, "voting", "10_23_45"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := db.GetSyncCacheEntry(ctx, "voting", "10_23_45"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry survived delete: %v", err)
	}
}

func TestAnalyticsCacheRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	computedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"KO":0.91,"PiS":0.88}`)
	if err := db.PutAnalyticsResult(ctx, 10, "cohesion", payload, computedAt); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	data, got, err := db.GetAnalyticsResult(ctx, 10, "cohesion")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("data = %s, want %s", data, payload)
	}
	if !got.Equal(computedAt) {
		t.Errorf("computed_at = %v, want %v", got, computedAt)
	}

	if err := db.ClearAnalyticsResults(ctx, 10); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, _, err := db.GetAnalyticsResult(ctx, 10, "cohesion"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("result survived clear: %v", err)
	}
}

func TestEntityCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTerm(t, db, 10)

	club := &models.Club{ID: "10_KO", TermNum: 10, Abbr: "KO", Name: "Koalicja Obywatelska"}
	if err := db.UpsertClub(ctx, club); err != nil {
		t.Fatalf("UpsertClub failed: %v", err)
	}
	voting := &models.Voting{
		ID: "10_1_1", SittingID: "10_1", TermNum: 10, SittingNum: 1, VotingNum: 1,
		Date: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), Title: "Test",
	}
	votes := []models.Vote{
		{ID: "10_1_1_1", VotingID: "10_1_1", MPID: "10_1", Choice: models.VoteYes},
	}
	if err := db.SaveVoting(ctx, voting, votes); err != nil {
		t.Fatalf("SaveVoting failed: %v", err)
	}

	counts, err := db.EntityCounts(ctx, 10)
	if err != nil {
		t.Fatalf("EntityCounts failed: %v", err)
	}
	want := map[string]int{"club": 1, "mp": 0, "sitting": 0, "voting": 1, "vote": 1, "process": 0}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("%s count = %d, want %d", name, counts[name], n)
		}
	}
}
