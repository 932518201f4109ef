// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names the entity kinds processed by the sync pipeline. Used as
// the first component of sync cache keys and as metric labels.
type EntityType string

const (
	EntityTerm    EntityType = "term"
	EntityClub    EntityType = "club"
	EntityMP      EntityType = "mp"
	EntitySitting EntityType = "sitting"
	EntityVoting  EntityType = "voting"
	EntityProcess EntityType = "process"
)

// SyncStatus is the final status of a sync run.
type SyncStatus string

const (
	// SyncCompleted means every id in scope was synced or skipped as fresh.
	SyncCompleted SyncStatus = "completed"
	// SyncCompletedWithFailures means some ids failed but the run finished;
	// failed ids are re-attempted on the next run.
	SyncCompletedWithFailures SyncStatus = "completed_with_failures"
	// SyncFatal means a store- or cache-level structural failure aborted the
	// run.
	SyncFatal SyncStatus = "fatal"
)

// EntityCounts tallies per-entity outcomes within a sync run.
type EntityCounts struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncFailure records one id that could not be fetched or persisted. The run
// continues past it; the id stays stale and is retried next run.
type SyncFailure struct {
	Entity     EntityType `json:"entity"`
	ExternalID string     `json:"externalId"`
	Reason     string     `json:"reason"`
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	RunID    uuid.UUID                   `json:"runId"`
	Term     int                         `json:"term"`
	Forced   bool                        `json:"forced"`
	Started  time.Time                   `json:"started"`
	Finished time.Time                   `json:"finished"`
	Status   SyncStatus                  `json:"status"`
	Counts   map[EntityType]EntityCounts `json:"counts"`
	Failures []SyncFailure               `json:"failures,omitempty"`
}

// Record tallies one outcome for an entity type.
func (r *SyncReport) Record(entity EntityType, synced, skipped, failed int) {
	if r.Counts == nil {
		r.Counts = make(map[EntityType]EntityCounts)
	}
	c := r.Counts[entity]
	c.Synced += synced
	c.Skipped += skipped
	c.Failed += failed
	r.Counts[entity] = c
}

// Fail records a per-id failure and tallies it.
func (r *SyncReport) Fail(entity EntityType, externalID string, err error) {
	r.Record(entity, 0, 0, 1)
	r.Failures = append(r.Failures, SyncFailure{
		Entity:     entity,
		ExternalID: externalID,
		Reason:     err.Error(),
	})
}

// TotalFailed returns the number of failed ids across all entity types.
func (r *SyncReport) TotalFailed() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Failed
	}
	return total
}

// Finalize sets the finish time and derives the final status. A run that saw
// per-id failures still exits successfully; only structural failures are
// fatal, and those are set by the caller directly.
func (r *SyncReport) Finalize() {
	r.Finished = time.Now().UTC()
	if r.Status == SyncFatal {
		return
	}
	if r.TotalFailed() > 0 {
		r.Status = SyncCompletedWithFailures
		return
	}
	r.Status = SyncCompleted
}

// DiscrepancyKind classifies validation findings.
type DiscrepancyKind string

const (
	// DiscrepancyCountMismatch: a voting's aggregate counts differ from the
	// summed cast votes.
	DiscrepancyCountMismatch DiscrepancyKind = "count_mismatch"
	// DiscrepancyMissingVotes: a voting with non-zero aggregates has no cast
	// votes loaded.
	DiscrepancyMissingVotes DiscrepancyKind = "missing_votes"
	// DiscrepancyOrphanVote: a vote references a missing MP or voting.
	DiscrepancyOrphanVote DiscrepancyKind = "orphan_vote"
	// DiscrepancyUnknownClub: an MP references a club that does not exist.
	DiscrepancyUnknownClub DiscrepancyKind = "unknown_club"
	// DiscrepancyEmptyVoting: a voting whose aggregate counts are all zero.
	DiscrepancyEmptyVoting DiscrepancyKind = "empty_voting"
)

// Discrepancy is a single validation finding. Never fatal.
type Discrepancy struct {
	Entity EntityType      `json:"entity"`
	ID     string          `json:"id"`
	Kind   DiscrepancyKind `json:"kind"`
	Detail string          `json:"detail,omitempty"`
}

// ValidationStats are row-count sanity figures gathered during validation.
type ValidationStats struct {
	MPs         int `json:"mps"`
	Clubs       int `json:"clubs"`
	Votings     int `json:"votings"`
	Votes       int `json:"votes"`
	Processes   int `json:"processes"`
	// CoveragePct is the share of votings that have vote-level records.
	CoveragePct float64 `json:"coveragePct"`
}

// ValidationReport is the full result of a validation pass over one term.
// All discrepancies are collected; the pass never stops at the first issue.
type ValidationReport struct {
	Term          int             `json:"term"`
	CheckedAt     time.Time       `json:"checkedAt"`
	Valid         bool            `json:"valid"`
	Stats         ValidationStats `json:"stats"`
	Discrepancies []Discrepancy   `json:"discrepancies,omitempty"`
}
