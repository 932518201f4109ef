// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models"
)

// UpsertTerm inserts or updates a legislative term by its number.
func (db *DB) UpsertTerm(ctx context.Context, term *models.Term) (err error) {
	defer metrics.ObserveDBQuery("upsert", "term", time.Now(), &err)

	query := `INSERT INTO term (num, from_date, to_date, current)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (num) DO UPDATE SET
			from_date = excluded.from_date,
			to_date = excluded.to_date,
			current = excluded.current`

	if _, err = db.conn.ExecContext(ctx, query, term.Num, term.FromDate, term.ToDate, term.Current); err != nil {
		return fmt.Errorf("failed to upsert term %d: %w", term.Num, err)
	}
	return nil
}

// UpsertClub inserts or updates a club by its composite ID.
func (db *DB) UpsertClub(ctx context.Context, club *models.Club) (err error) {
	defer metrics.ObserveDBQuery("upsert", "club", time.Now(), &err)

	query := `INSERT INTO club (id, term_num, abbr, name, members_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			abbr = excluded.abbr,
			name = excluded.name,
			members_count = excluded.members_count`

	if _, err = db.conn.ExecContext(ctx, query,
		club.ID, club.TermNum, club.Abbr, club.Name, club.MembersCount); err != nil {
		return fmt.Errorf("failed to upsert club %s: %w", club.ID, err)
	}
	return nil
}

// UpsertMP inserts or updates a member of parliament by its composite ID.
func (db *DB) UpsertMP(ctx context.Context, mp *models.MP) (err error) {
	defer metrics.ObserveDBQuery("upsert", "mp", time.Now(), &err)

	query := `INSERT INTO mp (id, term_num, mp_id, first_name, last_name, club, district, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			club = excluded.club,
			district = excluded.district,
			active = excluded.active`

	if _, err = db.conn.ExecContext(ctx, query,
		mp.ID, mp.TermNum, mp.MPID, mp.FirstName, mp.LastName, mp.Club, mp.District, mp.Active); err != nil {
		return fmt.Errorf("failed to upsert mp %s: %w", mp.ID, err)
	}
	return nil
}

// UpsertSitting inserts or updates a sitting by its composite ID. Dates are
// stored as a JSON array.
func (db *DB) UpsertSitting(ctx context.Context, sitting *models.Sitting) (err error) {
	defer metrics.ObserveDBQuery("upsert", "sitting", time.Now(), &err)

	dates := sitting.Dates
	if dates == nil {
		dates = []string{}
	}
	datesJSON, err := json.Marshal(dates)
	if err != nil {
		return fmt.Errorf("failed to encode sitting dates: %w", err)
	}

	query := `INSERT INTO sitting (id, term_num, number, dates)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			dates = excluded.dates`

	if _, err = db.conn.ExecContext(ctx, query,
		sitting.ID, sitting.TermNum, sitting.Number, string(datesJSON)); err != nil {
		return fmt.Errorf("failed to upsert sitting %s: %w", sitting.ID, err)
	}
	return nil
}

// SaveVoting upserts a voting and its individual votes in one transaction.
// A voting row is never visible without its votes.
func (db *DB) SaveVoting(ctx context.Context, voting *models.Voting, votes []models.Vote) (err error) {
	defer metrics.ObserveDBQuery("save", "voting", time.Now(), &err)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	votingQuery := `INSERT INTO voting (
		id, sitting_id, term_num, sitting_num, voting_num,
		date, title, topic, yes, no, abstain, not_voting
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		date = excluded.date,
		title = excluded.title,
		topic = excluded.topic,
		yes = excluded.yes,
		no = excluded.no,
		abstain = excluded.abstain,
		not_voting = excluded.not_voting`

	if _, err = tx.ExecContext(ctx, votingQuery,
		voting.ID, voting.SittingID, voting.TermNum, voting.SittingNum, voting.VotingNum,
		voting.Date, voting.Title, voting.Topic,
		voting.Yes, voting.No, voting.Abstain, voting.NotVoting); err != nil {
		return fmt.Errorf("failed to upsert voting %s: %w", voting.ID, err)
	}

	// Replace the vote set wholesale. Corrections can remove votes, and a
	// delete-then-insert inside the transaction keeps the set exact without
	// per-row conflict handling.
	if _, err = tx.ExecContext(ctx, `DELETE FROM vote WHERE voting_id = ?`, voting.ID); err != nil {
		return fmt.Errorf("failed to clear votes for %s: %w", voting.ID, err)
	}

	voteQuery := `INSERT INTO vote (id, voting_id, mp_id, club, vote) VALUES (?, ?, ?, ?, ?)`
	for i := range votes {
		v := &votes[i]
		if _, err = tx.ExecContext(ctx, voteQuery, v.ID, v.VotingID, v.MPID, v.Club, string(v.Choice)); err != nil {
			return fmt.Errorf("failed to insert vote %s: %w", v.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit voting %s: %w", voting.ID, err)
	}
	return nil
}

// SaveProcess upserts a legislative process and replaces its stage list in
// one transaction. Stages carry no external identity beyond their flattened
// position, so the stage set is rewritten on every save.
func (db *DB) SaveProcess(ctx context.Context, process *models.Process, stages []models.ProcessStage) (err error) {
	defer metrics.ObserveDBQuery("save", "process", time.Now(), &err)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	processQuery := `INSERT INTO process (
		id, term_num, number, title, document_type, document_type_enum, passed,
		process_start_date, closure_date, change_date, description, title_final
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		document_type = excluded.document_type,
		document_type_enum = excluded.document_type_enum,
		passed = excluded.passed,
		process_start_date = excluded.process_start_date,
		closure_date = excluded.closure_date,
		change_date = excluded.change_date,
		description = excluded.description,
		title_final = excluded.title_final`

	if _, err = tx.ExecContext(ctx, processQuery,
		process.ID, process.TermNum, process.Number, process.Title,
		process.DocumentType, process.DocumentTypeEnum, process.Passed,
		process.StartDate, process.ClosureDate, process.ChangeDate,
		process.Description, process.TitleFinal); err != nil {
		return fmt.Errorf("failed to upsert process %s: %w", process.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM process_stage WHERE process_id = ?`, process.ID); err != nil {
		return fmt.Errorf("failed to clear stages for %s: %w", process.ID, err)
	}

	stageQuery := `INSERT INTO process_stage (
		id, process_id, stage_index, stage_name, stage_type,
		date, sitting_num, decision, committee_code, voting_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range stages {
		s := &stages[i]
		if _, err = tx.ExecContext(ctx, stageQuery,
			s.ID, s.ProcessID, s.Index, s.StageName, s.StageType,
			s.Date, s.SittingNum, s.Decision, s.CommitteeCode, s.VotingID); err != nil {
			return fmt.Errorf("failed to insert stage %s: %w", s.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit process %s: %w", process.ID, err)
	}
	return nil
}
