// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package sejm defines the wire schemas of the Sejm REST API.
//
// Payloads are decoded strictly: a JSON type mismatch fails the decode, and
// every decoded struct is checked against its validate tags before the sync
// pipeline touches it. A shape mismatch is a permanent error for the id in
// question, never silently accepted partial data.
//
// Dates arrive in two formats ("2006-01-02" for dates, RFC 3339 without zone
// for timestamps) and are kept as strings here; the sync transform parses
// them defensively.
package sejm

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator. validator.Validate is safe for
// concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Check validates a decoded payload against its validate tags.
// Returns a descriptive error naming the failing fields.
func Check(payload any) error {
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("payload shape mismatch: %w", err)
	}
	return nil
}

// CheckSlice validates every element of a decoded list payload.
func CheckSlice[T any](payloads []T) error {
	for i := range payloads {
		if err := validate.Struct(&payloads[i]); err != nil {
			return fmt.Errorf("payload shape mismatch at index %d: %w", i, err)
		}
	}
	return nil
}

// Term is a Sejm term from GET /sejm/term.
type Term struct {
	Num     int     `json:"num" validate:"required,min=1"`
	From    string  `json:"from" validate:"required"`
	To      *string `json:"to"`
	Current bool    `json:"current"`
}

// Club is a parliamentary club from GET /sejm/term{t}/clubs.
type Club struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	MembersCount int    `json:"membersCount"`
}

// MP is a member of parliament from GET /sejm/term{t}/MP.
// Active is a pointer because the API omits the field for active members;
// absence means true.
type MP struct {
	ID           int     `json:"id" validate:"required"`
	FirstName    string  `json:"firstName" validate:"required"`
	LastName     string  `json:"lastName" validate:"required"`
	Club         *string `json:"club"`
	DistrictName *string `json:"districtName"`
	Active       *bool   `json:"active"`
}

// Proceeding is a sitting from GET /sejm/term{t}/proceedings.
// Number 0 is the API's placeholder for an unscheduled proceeding and is
// filtered out by the pipeline.
type Proceeding struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Dates  []string `json:"dates"`
}

// Voting is a roll-call summary from GET /sejm/term{t}/votings/{sitting}.
type Voting struct {
	Term             int     `json:"term"`
	Sitting          int     `json:"sitting"`
	VotingNumber     int     `json:"votingNumber" validate:"required,min=1"`
	Date             string  `json:"date" validate:"required"`
	Title            string  `json:"title" validate:"required"`
	Topic            *string `json:"topic"`
	Description      *string `json:"description"`
	Yes              int     `json:"yes" validate:"min=0"`
	No               int     `json:"no" validate:"min=0"`
	Abstain          int     `json:"abstain" validate:"min=0"`
	NotParticipating int     `json:"notParticipating" validate:"min=0"`
}

// Vote is one MP's vote inside a voting detail payload.
type Vote struct {
	MP   int     `json:"MP" validate:"required"`
	Club *string `json:"club"`
	Vote string  `json:"vote"`
}

// VotingDetails is GET /sejm/term{t}/votings/{sitting}/{num}: the summary
// plus individual votes.
type VotingDetails struct {
	Voting
	Votes []Vote `json:"votes" validate:"dive"`
}

// ProcessHeader is a legislative process from the paginated list
// GET /sejm/term{t}/processes.
type ProcessHeader struct {
	Term             int     `json:"term"`
	Number           string  `json:"number" validate:"required"`
	Title            string  `json:"title" validate:"required"`
	DocumentType     *string `json:"documentType"`
	DocumentTypeEnum *string `json:"documentTypeEnum"`
	Passed           *bool   `json:"passed"`
	ProcessStartDate *string `json:"processStartDate"`
	ClosureDate      *string `json:"closureDate"`
	ChangeDate       *string `json:"changeDate"`
	Description      *string `json:"description"`
}

// StageVotingRef links a process stage to a roll-call vote.
type StageVotingRef struct {
	Sitting      int `json:"sitting"`
	VotingNumber int `json:"votingNumber"`
}

// ProcessStage is one (possibly nested) stage of a legislative process.
type ProcessStage struct {
	StageName     string          `json:"stageName"`
	StageType     *string         `json:"stageType"`
	Date          *string         `json:"date"`
	SittingNum    *int            `json:"sittingNum"`
	Decision      *string         `json:"decision"`
	CommitteeCode *string         `json:"committeeCode"`
	Voting        *StageVotingRef `json:"voting"`
	Children      []ProcessStage  `json:"children"`
}

// ProcessDetails is GET /sejm/term{t}/processes/{num}: the header plus the
// stage tree.
type ProcessDetails struct {
	ProcessHeader
	Stages     []ProcessStage `json:"stages"`
	TitleFinal *string        `json:"titleFinal"`
}

// FlattenStages walks the stage tree depth-first and returns the stages in
// document order. The nesting itself carries no information the pipeline
// needs; the flattened index becomes part of the stage ID.
func FlattenStages(stages []ProcessStage) []ProcessStage {
	var out []ProcessStage
	for _, s := range stages {
		children := s.Children
		s.Children = nil
		out = append(out, s)
		if len(children) > 0 {
			out = append(out, FlattenStages(children)...)
		}
	}
	return out
}
