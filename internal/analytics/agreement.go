// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/models"
)

// direction is a club's majority stance on one voting.
type direction int

const (
	directionYes direction = iota
	directionNo
)

// clubDirection resolves a club's majority direction on one voting. The
// second return is false for exact ties and for votings where the club cast
// no decisive votes; such votings are excluded from agreement and dynamics,
// never counted as either direction.
func clubDirection(yes, no int) (direction, bool) {
	switch {
	case yes > no:
		return directionYes, true
	case no > yes:
		return directionNo, true
	default:
		return 0, false
	}
}

// BuildAgreementMatrix computes pairwise club agreement: for each pair, the
// fraction of votings where both clubs had a defined majority direction and
// those directions matched. Pairs with no shared decided votings are absent
// from the matrix. The matrix is symmetric and each club agrees 1.0 with
// itself (when it decided at least one voting).
func BuildAgreementMatrix(stats []database.ClubVotingStats) models.AgreementMatrix {
	// voting -> club -> direction
	directions := make(map[string]map[string]direction)
	clubs := make(map[string]bool)

	for _, s := range stats {
		clubs[s.Club] = true
		dir, ok := clubDirection(s.Yes, s.No)
		if !ok {
			continue
		}
		if directions[s.VotingID] == nil {
			directions[s.VotingID] = make(map[string]direction)
		}
		directions[s.VotingID][s.Club] = dir
	}

	shared := make(map[string]map[string]int)
	agreed := make(map[string]map[string]int)
	bump := func(m map[string]map[string]int, a, b string) {
		if m[a] == nil {
			m[a] = make(map[string]int)
		}
		m[a][b]++
	}

	for _, perClub := range directions {
		for a, dirA := range perClub {
			for b, dirB := range perClub {
				bump(shared, a, b)
				if dirA == dirB {
					bump(agreed, a, b)
				}
			}
		}
	}

	matrix := make(models.AgreementMatrix, len(clubs))
	for a, row := range shared {
		matrix[a] = make(map[string]float64, len(row))
		for b, n := range row {
			matrix[a][b] = float64(agreed[a][b]) / float64(n)
		}
	}
	return matrix
}
