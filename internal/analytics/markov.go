// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"sort"

	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/models"
)

// VotingDynamics models each club's date-ordered sequence of majority
// directions as a two-state Markov chain and reports momentum (tendency to
// repeat the previous direction) and volatility (tendency to switch).
// Ties and votings without decisive votes are skipped, so the chain runs
// over defined directions only. Clubs with fewer than two decisions are
// omitted; rows are ordered by club name.
func VotingDynamics(stats []database.ClubVotingStats) []models.TransitionRow {
	// stats arrive date-ordered from the store; preserve that order per club
	sequences := make(map[string][]direction)
	for _, s := range stats {
		dir, ok := clubDirection(s.Yes, s.No)
		if !ok {
			continue
		}
		sequences[s.Club] = append(sequences[s.Club], dir)
	}

	clubs := make([]string, 0, len(sequences))
	for club := range sequences {
		clubs = append(clubs, club)
	}
	sort.Strings(clubs)

	var rows []models.TransitionRow
	for _, club := range clubs {
		seq := sequences[club]
		if len(seq) < 2 {
			continue
		}

		// transition counts indexed [from][to]
		var counts [2][2]int
		for i := 1; i < len(seq); i++ {
			counts[seq[i-1]][seq[i]]++
		}

		prob := func(from, to direction) float64 {
			total := counts[from][directionYes] + counts[from][directionNo]
			if total == 0 {
				return 0
			}
			return float64(counts[from][to]) / float64(total)
		}

		rows = append(rows, models.TransitionRow{
			Club:       club,
			Momentum:   (prob(directionYes, directionYes) + prob(directionNo, directionNo)) / 2,
			Volatility: (prob(directionYes, directionNo) + prob(directionNo, directionYes)) / 2,
			Decisions:  len(seq),
		})
	}
	return rows
}
