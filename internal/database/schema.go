// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables and indexes. All columns are
// defined in the initial CREATE TABLE statements; there are no migrations to
// run at startup.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS term (
			num INTEGER PRIMARY KEY,
			from_date TIMESTAMP NOT NULL,
			to_date TIMESTAMP,
			current BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS club (
			id TEXT PRIMARY KEY,
			term_num INTEGER NOT NULL,
			abbr TEXT NOT NULL,
			name TEXT NOT NULL,
			members_count INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS mp (
			id TEXT PRIMARY KEY,
			term_num INTEGER NOT NULL,
			mp_id INTEGER NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			club TEXT,
			district TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS sitting (
			id TEXT PRIMARY KEY,
			term_num INTEGER NOT NULL,
			number INTEGER NOT NULL,
			-- JSON array of ISO dates
			dates TEXT NOT NULL DEFAULT '[]'
		)`,

		`CREATE TABLE IF NOT EXISTS voting (
			id TEXT PRIMARY KEY,
			sitting_id TEXT NOT NULL,
			term_num INTEGER NOT NULL,
			sitting_num INTEGER NOT NULL,
			voting_num INTEGER NOT NULL,
			date TIMESTAMP NOT NULL,
			title TEXT NOT NULL,
			topic TEXT,
			yes INTEGER NOT NULL DEFAULT 0,
			no INTEGER NOT NULL DEFAULT 0,
			abstain INTEGER NOT NULL DEFAULT 0,
			not_voting INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS vote (
			id TEXT PRIMARY KEY,
			voting_id TEXT NOT NULL,
			mp_id TEXT NOT NULL,
			club TEXT,
			vote TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS process (
			id TEXT PRIMARY KEY,
			term_num INTEGER NOT NULL,
			number TEXT NOT NULL,
			title TEXT NOT NULL,
			document_type TEXT,
			document_type_enum TEXT,
			passed BOOLEAN,
			process_start_date TIMESTAMP,
			closure_date TIMESTAMP,
			change_date TIMESTAMP,
			description TEXT,
			title_final TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS process_stage (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			stage_index INTEGER NOT NULL,
			stage_name TEXT NOT NULL,
			stage_type TEXT,
			date TIMESTAMP,
			sitting_num INTEGER,
			decision TEXT,
			committee_code TEXT,
			voting_id TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS sync_cache (
			entity_type TEXT NOT NULL,
			external_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			synced_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (entity_type, external_id)
		)`,

		`CREATE TABLE IF NOT EXISTS analytics_cache (
			term_num INTEGER NOT NULL,
			key TEXT NOT NULL,
			data TEXT NOT NULL,
			computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (term_num, key)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_club_term ON club(term_num)`,
		`CREATE INDEX IF NOT EXISTS idx_mp_term ON mp(term_num)`,
		`CREATE INDEX IF NOT EXISTS idx_mp_club ON mp(term_num, club)`,
		`CREATE INDEX IF NOT EXISTS idx_sitting_term ON sitting(term_num)`,
		`CREATE INDEX IF NOT EXISTS idx_voting_term ON voting(term_num)`,
		`CREATE INDEX IF NOT EXISTS idx_voting_sitting ON voting(sitting_id)`,
		`CREATE INDEX IF NOT EXISTS idx_voting_date ON voting(term_num, date)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_voting ON vote(voting_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_mp ON vote(mp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_process_term ON process(term_num)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_process ON process_stage(process_id)`,
	}
}
