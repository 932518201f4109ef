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

// AverageRice computes the mean Rice cohesion per club over the given
// per-voting breakdowns. Votings where a club cast no YES or NO votes do not
// enter that club's average; a club with no qualifying votings gets a nil
// Rice value. Rows are ordered by club name.
func AverageRice(stats []database.ClubVotingStats) []models.CohesionRow {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	seen := make(map[string]bool)

	for _, s := range stats {
		seen[s.Club] = true
		rice := RiceIndex(s.Yes, s.No)
		if rice == nil {
			continue
		}
		sums[s.Club] += *rice
		counts[s.Club]++
	}

	clubs := make([]string, 0, len(seen))
	for club := range seen {
		clubs = append(clubs, club)
	}
	sort.Strings(clubs)

	rows := make([]models.CohesionRow, 0, len(clubs))
	for _, club := range clubs {
		row := models.CohesionRow{Club: club, Votings: counts[club]}
		if counts[club] > 0 {
			avg := sums[club] / float64(counts[club])
			row.Rice = &avg
		}
		rows = append(rows, row)
	}
	return rows
}
