// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package models defines the domain entities persisted by the sync pipeline
// and consumed by the analytics engine.
//
// Identity convention: external Sejm identifiers are scoped by term into
// composite string IDs, e.g. club "10_KO", MP "10_123", voting "10_23_45"
// (term_sitting_votingNumber), vote "10_23_45_123" (votingID_mpID). These IDs
// are stable across re-syncs; the store upserts by them and never
// duplicate-inserts.
package models

import "time"

// VoteChoice is the fixed enumeration of individual vote values returned by
// the Sejm API.
type VoteChoice string

const (
	VoteYes     VoteChoice = "YES"
	VoteNo      VoteChoice = "NO"
	VoteAbstain VoteChoice = "ABSTAIN"
	VoteAbsent  VoteChoice = "ABSENT"
	// VoteNoVote marks an MP present but not voting; the API also uses it as
	// the default when a vote value is missing.
	VoteNoVote VoteChoice = "NO_VOTE"
)

// Valid reports whether v is one of the known vote values.
func (v VoteChoice) Valid() bool {
	switch v {
	case VoteYes, VoteNo, VoteAbstain, VoteAbsent, VoteNoVote:
		return true
	}
	return false
}

// Decisive reports whether the vote counts toward cohesion and agreement
// metrics (only YES and NO do).
func (v VoteChoice) Decisive() bool {
	return v == VoteYes || v == VoteNo
}

// Term is a legislative term. Immutable once recorded; the root scope for
// every other entity.
type Term struct {
	Num      int        `json:"num"`
	FromDate time.Time  `json:"from"`
	ToDate   *time.Time `json:"to,omitempty"`
	Current  bool       `json:"current"`
}

// Club is a parliamentary party or caucus within a term.
type Club struct {
	ID           string `json:"id"` // "<term>_<abbr>"
	TermNum      int    `json:"term"`
	Abbr         string `json:"abbr"`
	Name         string `json:"name"`
	MembersCount int    `json:"membersCount"`
}

// MP is a member of parliament within a term. Club affiliation is the
// affiliation as of the last sync.
type MP struct {
	ID        string  `json:"id"` // "<term>_<mpID>"
	TermNum   int     `json:"term"`
	MPID      int     `json:"mpId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Club      *string `json:"club,omitempty"`
	District  *string `json:"district,omitempty"`
	Active    bool    `json:"active"`
}

// Sitting is a numbered plenary session within a term.
type Sitting struct {
	ID      string   `json:"id"` // "<term>_<number>"
	TermNum int      `json:"term"`
	Number  int      `json:"number"`
	Dates   []string `json:"dates"`
}

// Voting is a single roll-call vote with its aggregate counts.
type Voting struct {
	ID         string    `json:"id"` // "<term>_<sitting>_<votingNumber>"
	SittingID  string    `json:"sittingId"`
	TermNum    int       `json:"term"`
	SittingNum int       `json:"sitting"`
	VotingNum  int       `json:"votingNumber"`
	Date       time.Time `json:"date"`
	Title      string    `json:"title"`
	Topic      *string   `json:"topic,omitempty"`
	Yes        int       `json:"yes"`
	No         int       `json:"no"`
	Abstain    int       `json:"abstain"`
	NotVoting  int       `json:"notParticipating"`
}

// Passed reports whether the voting carried (more YES than NO among cast
// votes). The Sejm API does not return an explicit outcome field.
func (v *Voting) Passed() bool {
	return v.Yes > v.No
}

// Vote is one MP's choice on one Voting. The (MP, Voting) pair is unique,
// enforced by the composite ID.
type Vote struct {
	ID       string     `json:"id"` // "<votingID>_<mpID>"
	VotingID string     `json:"votingId"`
	MPID     string     `json:"mpId"` // "<term>_<mpID>"
	Club     *string    `json:"club,omitempty"`
	Choice   VoteChoice `json:"vote"`
}

// Process is a bill's lifecycle record.
type Process struct {
	ID               string     `json:"id"` // "<term>_<number>"
	TermNum          int        `json:"term"`
	Number           string     `json:"number"`
	Title            string     `json:"title"`
	DocumentType     *string    `json:"documentType,omitempty"`
	DocumentTypeEnum *string    `json:"documentTypeEnum,omitempty"`
	Passed           *bool      `json:"passed,omitempty"`
	StartDate        *time.Time `json:"processStartDate,omitempty"`
	ClosureDate      *time.Time `json:"closureDate,omitempty"`
	ChangeDate       *time.Time `json:"changeDate,omitempty"`
	Description      *string    `json:"description,omitempty"`
	TitleFinal       *string    `json:"titleFinal,omitempty"`
}

// ProcessStage is one step of a legislative process. Nested stages from the
// API are flattened; Index preserves the flattened order.
type ProcessStage struct {
	ID            string     `json:"id"` // "<processID>_<index>"
	ProcessID     string     `json:"processId"`
	Index         int        `json:"index"`
	StageName     string     `json:"stageName"`
	StageType     *string    `json:"stageType,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	SittingNum    *int       `json:"sittingNum,omitempty"`
	Decision      *string    `json:"decision,omitempty"`
	CommitteeCode *string    `json:"committeeCode,omitempty"`
	// VotingID links the stage to a roll-call vote when the API provides one.
	VotingID *string `json:"votingId,omitempty"`
}

// SyncCacheEntry records that a given (entity type, external id, fingerprint)
// has been fetched and persisted. Monotonic: once recorded for a fingerprint,
// re-syncs with the same fingerprint are no-ops unless forced.
type SyncCacheEntry struct {
	EntityType  string    `json:"entityType"`
	ExternalID  string    `json:"externalId"`
	Fingerprint string    `json:"fingerprint"`
	SyncedAt    time.Time `json:"syncedAt"`
}
