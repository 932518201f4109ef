// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package validation cross-checks the synced data for internal consistency:
// aggregate vote counts against summed cast votes, referential integrity of
// votes and club affiliations, and vote-level coverage. Wire-level payload
// shape is checked at decode time in models/sejm; this package audits what
// actually landed in the store.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/models"
)

// Store is the read surface the checker needs. *database.DB satisfies it.
type Store interface {
	ListVotings(ctx context.Context, term int) ([]models.Voting, error)
	CastVoteCounts(ctx context.Context, term int) (map[string]map[models.VoteChoice]int, error)
	OrphanVoteIDs(ctx context.Context, term int) ([]string, error)
	MPsWithUnknownClub(ctx context.Context, term int) ([]string, error)
	EntityCounts(ctx context.Context, term int) (map[string]int, error)
}

// Checker audits one term's stored data and produces a full report. It never
// stops at the first finding; a query failure is the only error path.
type Checker struct {
	store Store
	now   func() time.Time
}

// NewChecker creates a checker over the given store.
func NewChecker(store Store) *Checker {
	return &Checker{store: store, now: time.Now}
}

// ValidateTerm runs every consistency check for a term and collects all
// discrepancies into one report.
func (c *Checker) ValidateTerm(ctx context.Context, term int) (*models.ValidationReport, error) {
	log := logging.Ctx(ctx).With().Int("term", term).Logger()

	report := &models.ValidationReport{
		Term:      term,
		CheckedAt: c.now().UTC(),
	}

	counts, err := c.store.EntityCounts(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to gather entity counts: %w", err)
	}
	report.Stats = models.ValidationStats{
		MPs:       counts["mp"],
		Clubs:     counts["club"],
		Votings:   counts["voting"],
		Votes:     counts["vote"],
		Processes: counts["process"],
	}

	votings, err := c.store.ListVotings(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to list votings: %w", err)
	}
	castCounts, err := c.store.CastVoteCounts(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to load cast vote counts: %w", err)
	}

	c.checkVotings(report, votings, castCounts)

	orphans, err := c.store.OrphanVoteIDs(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan votes: %w", err)
	}
	for _, id := range orphans {
		report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
			Entity: models.EntityVoting,
			ID:     id,
			Kind:   models.DiscrepancyOrphanVote,
			Detail: "vote references an MP that is not in the store",
		})
	}

	unknownClubs, err := c.store.MPsWithUnknownClub(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to find unknown club references: %w", err)
	}
	for _, id := range unknownClubs {
		report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
			Entity: models.EntityMP,
			ID:     id,
			Kind:   models.DiscrepancyUnknownClub,
			Detail: "MP affiliation has no matching club in the term",
		})
	}

	report.Valid = len(report.Discrepancies) == 0

	log.Info().
		Int("votings", report.Stats.Votings).
		Int("votes", report.Stats.Votes).
		Int("discrepancies", len(report.Discrepancies)).
		Float64("coverage_pct", report.Stats.CoveragePct).
		Bool("valid", report.Valid).
		Msg("validation finished")

	return report, nil
}

// checkVotings compares each voting's aggregate counts against the cast
// votes actually stored, and computes coverage.
func (c *Checker) checkVotings(report *models.ValidationReport, votings []models.Voting, castCounts map[string]map[models.VoteChoice]int) {
	covered := 0
	for i := range votings {
		v := &votings[i]
		aggregate := v.Yes + v.No + v.Abstain + v.NotVoting

		if aggregate == 0 {
			report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
				Entity: models.EntityVoting,
				ID:     v.ID,
				Kind:   models.DiscrepancyEmptyVoting,
				Detail: "all aggregate counts are zero",
			})
			continue
		}

		cast := castCounts[v.ID]
		if len(cast) == 0 {
			report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
				Entity: models.EntityVoting,
				ID:     v.ID,
				Kind:   models.DiscrepancyMissingVotes,
				Detail: fmt.Sprintf("aggregates report %d participants but no cast votes are stored", aggregate),
			})
			continue
		}
		covered++

		// ABSENT and NO_VOTE both land in the not-participating aggregate
		mismatches := []struct {
			name      string
			aggregate int
			cast      int
		}{
			{"yes", v.Yes, cast[models.VoteYes]},
			{"no", v.No, cast[models.VoteNo]},
			{"abstain", v.Abstain, cast[models.VoteAbstain]},
			{"not_voting", v.NotVoting, cast[models.VoteAbsent] + cast[models.VoteNoVote]},
		}
		for _, m := range mismatches {
			if m.aggregate != m.cast {
				report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
					Entity: models.EntityVoting,
					ID:     v.ID,
					Kind:   models.DiscrepancyCountMismatch,
					Detail: fmt.Sprintf("%s: aggregate %d vs %d cast", m.name, m.aggregate, m.cast),
				})
			}
		}
	}

	if len(votings) > 0 {
		report.Stats.CoveragePct = float64(covered) / float64(len(votings)) * 100
	}
}
