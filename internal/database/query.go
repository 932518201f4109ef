// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// GetTerm returns a term by number, or ErrNotFound.
func (db *DB) GetTerm(ctx context.Context, num int) (_ *models.Term, err error) {
	defer metrics.ObserveDBQuery("select", "term", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT num, from_date, to_date, current FROM term WHERE num = ?`, num)

	var t models.Term
	if err = row.Scan(&t.Num, &t.FromDate, &t.ToDate, &t.Current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("term %d: %w", num, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query term %d: %w", num, err)
	}
	return &t, nil
}

// ListTerms returns all recorded terms ordered by number.
func (db *DB) ListTerms(ctx context.Context) (_ []models.Term, err error) {
	defer metrics.ObserveDBQuery("select", "term", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT num, from_date, to_date, current FROM term ORDER BY num`)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	var terms []models.Term
	for rows.Next() {
		var t models.Term
		if err = rows.Scan(&t.Num, &t.FromDate, &t.ToDate, &t.Current); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read terms: %w", err)
	}
	return terms, nil
}

// ListClubs returns all clubs of a term ordered by abbreviation.
func (db *DB) ListClubs(ctx context.Context, term int) (_ []models.Club, err error) {
	defer metrics.ObserveDBQuery("select", "club", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, term_num, abbr, name, members_count FROM club WHERE term_num = ? ORDER BY abbr`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query clubs: %w", err)
	}
	defer rows.Close()

	var clubs []models.Club
	for rows.Next() {
		var c models.Club
		if err = rows.Scan(&c.ID, &c.TermNum, &c.Abbr, &c.Name, &c.MembersCount); err != nil {
			return nil, fmt.Errorf("failed to scan club: %w", err)
		}
		clubs = append(clubs, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read clubs: %w", err)
	}
	return clubs, nil
}

// ClubSeats returns the seat count per club abbreviation in a term, derived
// from active MP affiliations. Clubs with no active MPs are absent.
func (db *DB) ClubSeats(ctx context.Context, term int) (_ map[string]int, err error) {
	defer metrics.ObserveDBQuery("select", "mp", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT club, COUNT(*) FROM mp
		 WHERE term_num = ? AND active AND club IS NOT NULL
		 GROUP BY club`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	seats := make(map[string]int)
	for rows.Next() {
		var club string
		var count int
		if err = rows.Scan(&club, &count); err != nil {
			return nil, fmt.Errorf("failed to scan seats: %w", err)
		}
		seats[club] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seats: %w", err)
	}
	return seats, nil
}

// ListMPs returns all MPs of a term ordered by last name.
func (db *DB) ListMPs(ctx context.Context, term int) (_ []models.MP, err error) {
	defer metrics.ObserveDBQuery("select", "mp", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, term_num, mp_id, first_name, last_name, club, district, active
		 FROM mp WHERE term_num = ? ORDER BY last_name, first_name`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query mps: %w", err)
	}
	defer rows.Close()

	var mps []models.MP
	for rows.Next() {
		var m models.MP
		if err = rows.Scan(&m.ID, &m.TermNum, &m.MPID, &m.FirstName, &m.LastName,
			&m.Club, &m.District, &m.Active); err != nil {
			return nil, fmt.Errorf("failed to scan mp: %w", err)
		}
		mps = append(mps, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mps: %w", err)
	}
	return mps, nil
}

// ListSittings returns all sittings of a term ordered by number.
func (db *DB) ListSittings(ctx context.Context, term int) (_ []models.Sitting, err error) {
	defer metrics.ObserveDBQuery("select", "sitting", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, term_num, number, dates FROM sitting WHERE term_num = ? ORDER BY number`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query sittings: %w", err)
	}
	defer rows.Close()

	var sittings []models.Sitting
	for rows.Next() {
		var s models.Sitting
		var datesJSON string
		if err = rows.Scan(&s.ID, &s.TermNum, &s.Number, &datesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan sitting: %w", err)
		}
		if err = json.Unmarshal([]byte(datesJSON), &s.Dates); err != nil {
			return nil, fmt.Errorf("failed to decode sitting dates for %s: %w", s.ID, err)
		}
		sittings = append(sittings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sittings: %w", err)
	}
	return sittings, nil
}

// ListVotings returns all votings of a term ordered by date, then ID.
func (db *DB) ListVotings(ctx context.Context, term int) (_ []models.Voting, err error) {
	defer metrics.ObserveDBQuery("select", "voting", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, sitting_id, term_num, sitting_num, voting_num,
			date, title, topic, yes, no, abstain, not_voting
		 FROM voting WHERE term_num = ?
		 ORDER BY date, sitting_num, voting_num`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query votings: %w", err)
	}
	defer rows.Close()

	var votings []models.Voting
	for rows.Next() {
		var v models.Voting
		if err = rows.Scan(&v.ID, &v.SittingID, &v.TermNum, &v.SittingNum, &v.VotingNum,
			&v.Date, &v.Title, &v.Topic, &v.Yes, &v.No, &v.Abstain, &v.NotVoting); err != nil {
			return nil, fmt.Errorf("failed to scan voting: %w", err)
		}
		votings = append(votings, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votings: %w", err)
	}
	return votings, nil
}

// ClubVotingStats is the YES/NO breakdown of one club on one voting, the raw
// material for cohesion, agreement, and voting-dynamics metrics.
type ClubVotingStats struct {
	VotingID string
	Date     time.Time
	Club     string
	Yes      int
	No       int
}

// ClubVotingBreakdown aggregates decisive votes (YES/NO) per club per voting
// for a term, ordered chronologically. Votes without a club are excluded.
func (db *DB) ClubVotingBreakdown(ctx context.Context, term int) (_ []ClubVotingStats, err error) {
	defer metrics.ObserveDBQuery("select", "vote", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.voting_id, vt.date, v.club,
			COUNT(*) FILTER (WHERE v.vote = 'YES') AS yes,
			COUNT(*) FILTER (WHERE v.vote = 'NO') AS no
		 FROM vote v
		 JOIN voting vt ON vt.id = v.voting_id
		 WHERE vt.term_num = ? AND v.club IS NOT NULL
		 GROUP BY v.voting_id, vt.date, vt.sitting_num, vt.voting_num, v.club
		 ORDER BY vt.date, vt.sitting_num, vt.voting_num, v.club`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query club voting breakdown: %w", err)
	}
	defer rows.Close()

	var stats []ClubVotingStats
	for rows.Next() {
		var s ClubVotingStats
		if err = rows.Scan(&s.VotingID, &s.Date, &s.Club, &s.Yes, &s.No); err != nil {
			return nil, fmt.Errorf("failed to scan club voting breakdown: %w", err)
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read club voting breakdown: %w", err)
	}
	return stats, nil
}

// CastVoteCounts returns the number of stored individual votes per choice for
// every voting of a term, keyed by voting ID. Votings with no stored votes
// are absent from the map.
func (db *DB) CastVoteCounts(ctx context.Context, term int) (_ map[string]map[models.VoteChoice]int, err error) {
	defer metrics.ObserveDBQuery("select", "vote", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.voting_id, v.vote, COUNT(*)
		 FROM vote v
		 JOIN voting vt ON vt.id = v.voting_id
		 WHERE vt.term_num = ?
		 GROUP BY v.voting_id, v.vote`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query cast vote counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[models.VoteChoice]int)
	for rows.Next() {
		var votingID, choice string
		var n int
		if err = rows.Scan(&votingID, &choice, &n); err != nil {
			return nil, fmt.Errorf("failed to scan cast vote counts: %w", err)
		}
		if counts[votingID] == nil {
			counts[votingID] = make(map[models.VoteChoice]int)
		}
		counts[votingID][models.VoteChoice(choice)] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cast vote counts: %w", err)
	}
	return counts, nil
}

// OrphanVoteIDs returns IDs of votes whose MP reference does not resolve to a
// stored MP row. The voting reference cannot dangle (votes are written in the
// voting's transaction), so only the MP side is checked.
func (db *DB) OrphanVoteIDs(ctx context.Context, term int) (_ []string, err error) {
	defer metrics.ObserveDBQuery("select", "vote", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.id FROM vote v
		 JOIN voting vt ON vt.id = v.voting_id
		 LEFT JOIN mp ON mp.id = v.mp_id
		 WHERE vt.term_num = ? AND mp.id IS NULL
		 ORDER BY v.id`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan votes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan orphan vote: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orphan votes: %w", err)
	}
	return ids, nil
}

// MPsWithUnknownClub returns IDs of MPs whose club abbreviation has no club
// row in the same term.
func (db *DB) MPsWithUnknownClub(ctx context.Context, term int) (_ []string, err error) {
	defer metrics.ObserveDBQuery("select", "mp", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT mp.id FROM mp
		 LEFT JOIN club ON club.term_num = mp.term_num AND club.abbr = mp.club
		 WHERE mp.term_num = ? AND mp.club IS NOT NULL AND club.id IS NULL
		 ORDER BY mp.id`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query unknown clubs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unknown club mp: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unknown club mps: %w", err)
	}
	return ids, nil
}

// ListProcesses returns all processes of a term ordered by number.
func (db *DB) ListProcesses(ctx context.Context, term int) (_ []models.Process, err error) {
	defer metrics.ObserveDBQuery("select", "process", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, term_num, number, title, document_type, document_type_enum, passed,
			process_start_date, closure_date, change_date, description, title_final
		 FROM process WHERE term_num = ? ORDER BY number`, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query processes: %w", err)
	}
	defer rows.Close()

	var processes []models.Process
	for rows.Next() {
		var p models.Process
		if err = rows.Scan(&p.ID, &p.TermNum, &p.Number, &p.Title,
			&p.DocumentType, &p.DocumentTypeEnum, &p.Passed,
			&p.StartDate, &p.ClosureDate, &p.ChangeDate, &p.Description, &p.TitleFinal); err != nil {
			return nil, fmt.Errorf("failed to scan process: %w", err)
		}
		processes = append(processes, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processes: %w", err)
	}
	return processes, nil
}

// ListProcessStages returns the stages of a process in flattened order.
func (db *DB) ListProcessStages(ctx context.Context, processID string) (_ []models.ProcessStage, err error) {
	defer metrics.ObserveDBQuery("select", "process_stage", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, process_id, stage_index, stage_name, stage_type,
			date, sitting_num, decision, committee_code, voting_id
		 FROM process_stage WHERE process_id = ? ORDER BY stage_index`, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer rows.Close()

	var stages []models.ProcessStage
	for rows.Next() {
		var s models.ProcessStage
		if err = rows.Scan(&s.ID, &s.ProcessID, &s.Index, &s.StageName, &s.StageType,
			&s.Date, &s.SittingNum, &s.Decision, &s.CommitteeCode, &s.VotingID); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stages: %w", err)
	}
	return stages, nil
}

// EntityCounts returns row counts per entity table for a term, used by sync
// reports and validation coverage.
func (db *DB) EntityCounts(ctx context.Context, term int) (_ map[string]int, err error) {
	defer metrics.ObserveDBQuery("select", "counts", time.Now(), &err)

	queries := map[string]string{
		"club":    `SELECT COUNT(*) FROM club WHERE term_num = ?`,
		"mp":      `SELECT COUNT(*) FROM mp WHERE term_num = ?`,
		"sitting": `SELECT COUNT(*) FROM sitting WHERE term_num = ?`,
		"voting":  `SELECT COUNT(*) FROM voting WHERE term_num = ?`,
		"vote":    `SELECT COUNT(*) FROM vote v JOIN voting vt ON vt.id = v.voting_id WHERE vt.term_num = ?`,
		"process": `SELECT COUNT(*) FROM process WHERE term_num = ?`,
	}

	counts := make(map[string]int, len(queries))
	for name, query := range queries {
		var n int
		if err = db.conn.QueryRowContext(ctx, query, term).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
