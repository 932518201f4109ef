// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package analytics derives voting-behavior metrics from the synced data:
// Rice cohesion, Shapley-Shubik and Banzhaf power indices, minimum winning
// coalitions, pairwise agreement, Markov voting dynamics, and topic
// clustering with pass prediction over legislative processes.
//
// The formulas in this file are pure: they take seat maps or pre-aggregated
// vote counts and perform no I/O. The engine wires them to the store and the
// result cache.
package analytics

import (
	"math"
	"sort"

	"github.com/plenumlab/plenum/internal/models"
)

// permutationLimit is the club count up to which Shapley-Shubik enumerates
// orderings directly. Above it the exact dynamic-programming formulation
// takes over; both give identical results.
const permutationLimit = 10

// RiceIndex is |yes-no|/(yes+no) for one club on one voting. Returns nil
// when the club cast no YES or NO votes, in which case cohesion is
// undefined rather than zero.
func RiceIndex(yes, no int) *float64 {
	total := yes + no
	if total == 0 {
		return nil
	}
	rice := math.Abs(float64(yes-no)) / float64(total)
	return &rice
}

// MajorityQuota is the strict-majority threshold for the given seat total.
func MajorityQuota(totalSeats int) int {
	return totalSeats/2 + 1
}

// sortedClubs returns the club names in deterministic order.
func sortedClubs(seats map[string]int) []string {
	clubs := make([]string, 0, len(seats))
	for club := range seats {
		clubs = append(clubs, club)
	}
	sort.Strings(clubs)
	return clubs
}

// ShapleyShubik computes the Shapley-Shubik power index for each club: the
// fraction of club orderings in which the club's seats push the running
// total past the quota. The indices sum to 1 whenever the quota is
// attainable.
func ShapleyShubik(seats map[string]int, quota int) map[string]float64 {
	clubs := sortedClubs(seats)
	n := len(clubs)
	if n == 0 {
		return map[string]float64{}
	}

	if n <= permutationLimit {
		return shapleyByPermutations(clubs, seats, quota)
	}
	return shapleyByCoalitionCounts(clubs, seats, quota)
}

// shapleyByPermutations walks every ordering and credits the pivotal club.
func shapleyByPermutations(clubs []string, seats map[string]int, quota int) map[string]float64 {
	n := len(clubs)
	pivots := make(map[string]int64, n)
	for _, club := range clubs {
		pivots[club] = 0
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var total int64
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			total++
			sum := 0
			for _, idx := range perm {
				club := clubs[idx]
				sum += seats[club]
				if sum >= quota {
					pivots[club]++
					return
				}
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)

	indices := make(map[string]float64, n)
	for _, club := range clubs {
		indices[club] = float64(pivots[club]) / float64(total)
	}
	return indices
}

// shapleyByCoalitionCounts uses the exact identity
//
//	phi_i = sum over coalitions S not containing i where i is pivotal of
//	        |S|! (n-|S|-1)! / n!
//
// counted with a dynamic program over (coalition size, seat sum) for the
// remaining clubs.
func shapleyByCoalitionCounts(clubs []string, seats map[string]int, quota int) map[string]float64 {
	n := len(clubs)
	totalSeats := 0
	for _, club := range clubs {
		totalSeats += seats[club]
	}

	factorials := make([]float64, n+1)
	factorials[0] = 1
	for i := 1; i <= n; i++ {
		factorials[i] = factorials[i-1] * float64(i)
	}

	indices := make(map[string]float64, n)
	for _, club := range clubs {
		w := seats[club]

		// dp[s][sum] = number of coalitions of the other clubs with s
		// members and that seat sum
		dp := make([][]float64, n)
		for s := range dp {
			dp[s] = make([]float64, totalSeats+1)
		}
		dp[0][0] = 1
		for _, other := range clubs {
			if other == club {
				continue
			}
			ow := seats[other]
			for s := n - 2; s >= 0; s-- {
				for sum := totalSeats - ow; sum >= 0; sum-- {
					if dp[s][sum] != 0 {
						dp[s+1][sum+ow] += dp[s][sum]
					}
				}
			}
		}

		var phi float64
		for s := 0; s < n; s++ {
			weight := factorials[s] * factorials[n-s-1] / factorials[n]
			for sum := 0; sum <= totalSeats; sum++ {
				// pivotal: coalition loses without the club, wins with it
				if sum < quota && sum+w >= quota && dp[s][sum] != 0 {
					phi += weight * dp[s][sum]
				}
			}
		}
		indices[club] = phi
	}
	return indices
}

// Banzhaf computes the normalized Banzhaf power index: each club's count of
// winning coalitions in which it is critical, divided by the total count
// across clubs. Subset enumeration; the domain caps club counts well below
// the practical limit.
func Banzhaf(seats map[string]int, quota int) map[string]float64 {
	clubs := sortedClubs(seats)
	n := len(clubs)
	if n == 0 {
		return map[string]float64{}
	}

	critical := make([]int64, n)
	var totalCritical int64

	for mask := 1; mask < 1<<n; mask++ {
		sum := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				sum += seats[clubs[i]]
			}
		}
		if sum < quota {
			continue
		}
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 && sum-seats[clubs[i]] < quota {
				critical[i]++
				totalCritical++
			}
		}
	}

	indices := make(map[string]float64, n)
	for i, club := range clubs {
		if totalCritical == 0 {
			indices[club] = 0
			continue
		}
		indices[club] = float64(critical[i]) / float64(totalCritical)
	}
	return indices
}

// MinWinningCoalitions enumerates every minimal winning coalition: a set of
// clubs meeting the quota from which removing any member drops below it.
// Results are deterministic, ordered by surplus, then size, then member
// names; each coalition's club list is sorted.
func MinWinningCoalitions(seats map[string]int, quota int) []models.Coalition {
	clubs := sortedClubs(seats)
	n := len(clubs)

	var coalitions []models.Coalition
	for mask := 1; mask < 1<<n; mask++ {
		sum := 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				sum += seats[clubs[i]]
			}
		}
		if sum < quota {
			continue
		}

		minimal := true
		for i := 0; i < n && minimal; i++ {
			if mask&(1<<i) != 0 && sum-seats[clubs[i]] >= quota {
				minimal = false
			}
		}
		if !minimal {
			continue
		}

		members := make([]string, 0, n)
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, clubs[i])
			}
		}
		coalitions = append(coalitions, models.Coalition{
			Clubs:   members,
			Seats:   sum,
			Surplus: sum - quota,
		})
	}

	sort.Slice(coalitions, func(a, b int) bool {
		ca, cb := coalitions[a], coalitions[b]
		if ca.Surplus != cb.Surplus {
			return ca.Surplus < cb.Surplus
		}
		if len(ca.Clubs) != len(cb.Clubs) {
			return len(ca.Clubs) < len(cb.Clubs)
		}
		for i := range ca.Clubs {
			if ca.Clubs[i] != cb.Clubs[i] {
				return ca.Clubs[i] < cb.Clubs[i]
			}
		}
		return false
	})
	return coalitions
}

// PowerIndices combines seats, seat share, Shapley-Shubik, and normalized
// Banzhaf into one row per club, ordered by seats descending then name.
func PowerIndices(seats map[string]int) []models.PowerIndexRow {
	totalSeats := 0
	for _, s := range seats {
		totalSeats += s
	}
	if totalSeats == 0 {
		return nil
	}

	quota := MajorityQuota(totalSeats)
	shapley := ShapleyShubik(seats, quota)
	banzhaf := Banzhaf(seats, quota)

	rows := make([]models.PowerIndexRow, 0, len(seats))
	for _, club := range sortedClubs(seats) {
		rows = append(rows, models.PowerIndexRow{
			Club:     club,
			Seats:    seats[club],
			SeatsPct: float64(seats[club]) / float64(totalSeats),
			Shapley:  shapley[club],
			Banzhaf:  banzhaf[club],
		})
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Seats != rows[b].Seats {
			return rows[a].Seats > rows[b].Seats
		}
		return rows[a].Club < rows[b].Club
	})
	return rows
}
