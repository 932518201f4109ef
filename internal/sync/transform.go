// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sync

import (
	"fmt"
	"time"

	"github.com/plenumlab/plenum/internal/models"
	"github.com/plenumlab/plenum/internal/models/sejm"
)

// Composite ID builders. The term number scopes every external id; see the
// models package doc for the full convention.

func clubID(term int, abbr string) string       { return fmt.Sprintf("%d_%s", term, abbr) }
func mpID(term, id int) string                  { return fmt.Sprintf("%d_%d", term, id) }
func sittingID(term, number int) string         { return fmt.Sprintf("%d_%d", term, number) }
func votingID(term, sitting, number int) string { return fmt.Sprintf("%d_%d_%d", term, sitting, number) }
func voteID(voting string, mp int) string       { return fmt.Sprintf("%s_%d", voting, mp) }
func processID(term int, number string) string  { return fmt.Sprintf("%d_%s", term, number) }
func stageID(process string, index int) string  { return fmt.Sprintf("%s_%d", process, index) }

// timeLayouts are the formats the Sejm API uses, most specific first.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime parses a Sejm API date string. All API times are local Warsaw
// wall-clock without zone; they are stored as-is in UTC.
func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", value)
}

// parseTimePtr parses an optional date string; nil in, nil out.
func parseTimePtr(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseTime(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func transformTerm(payload *sejm.Term) (*models.Term, error) {
	from, err := parseTime(payload.From)
	if err != nil {
		return nil, fmt.Errorf("term %d from date: %w", payload.Num, err)
	}
	to, err := parseTimePtr(payload.To)
	if err != nil {
		return nil, fmt.Errorf("term %d to date: %w", payload.Num, err)
	}
	return &models.Term{
		Num:      payload.Num,
		FromDate: from,
		ToDate:   to,
		Current:  payload.Current,
	}, nil
}

func transformClub(term int, payload *sejm.Club) *models.Club {
	return &models.Club{
		ID:           clubID(term, payload.ID),
		TermNum:      term,
		Abbr:         payload.ID,
		Name:         payload.Name,
		MembersCount: payload.MembersCount,
	}
}

func transformMP(term int, payload *sejm.MP) *models.MP {
	// the API omits active for sitting members
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	return &models.MP{
		ID:        mpID(term, payload.ID),
		TermNum:   term,
		MPID:      payload.ID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Club:      payload.Club,
		District:  payload.DistrictName,
		Active:    active,
	}
}

func transformSitting(term int, payload *sejm.Proceeding) *models.Sitting {
	return &models.Sitting{
		ID:      sittingID(term, payload.Number),
		TermNum: term,
		Number:  payload.Number,
		Dates:   payload.Dates,
	}
}

func transformVoting(term int, payload *sejm.Voting) (*models.Voting, error) {
	date, err := parseTime(payload.Date)
	if err != nil {
		return nil, fmt.Errorf("voting %d/%d date: %w", payload.Sitting, payload.VotingNumber, err)
	}
	id := votingID(term, payload.Sitting, payload.VotingNumber)
	return &models.Voting{
		ID:         id,
		SittingID:  sittingID(term, payload.Sitting),
		TermNum:    term,
		SittingNum: payload.Sitting,
		VotingNum:  payload.VotingNumber,
		Date:       date,
		Title:      payload.Title,
		Topic:      payload.Topic,
		Yes:        payload.Yes,
		No:         payload.No,
		Abstain:    payload.Abstain,
		NotVoting:  payload.NotParticipating,
	}, nil
}

func transformVotes(term int, voting string, payloads []sejm.Vote) []models.Vote {
	votes := make([]models.Vote, 0, len(payloads))
	for i := range payloads {
		p := &payloads[i]
		choice := models.VoteChoice(p.Vote)
		if !choice.Valid() {
			// the API leaves the field empty for non-voting MPs
			choice = models.VoteNoVote
		}
		votes = append(votes, models.Vote{
			ID:       voteID(voting, p.MP),
			VotingID: voting,
			MPID:     mpID(term, p.MP),
			Club:     p.Club,
			Choice:   choice,
		})
	}
	return votes
}

func transformProcess(term int, payload *sejm.ProcessDetails) (*models.Process, []models.ProcessStage, error) {
	startDate, err := parseTimePtr(payload.ProcessStartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("process %s start date: %w", payload.Number, err)
	}
	closureDate, err := parseTimePtr(payload.ClosureDate)
	if err != nil {
		return nil, nil, fmt.Errorf("process %s closure date: %w", payload.Number, err)
	}
	changeDate, err := parseTimePtr(payload.ChangeDate)
	if err != nil {
		return nil, nil, fmt.Errorf("process %s change date: %w", payload.Number, err)
	}

	id := processID(term, payload.Number)
	process := &models.Process{
		ID:               id,
		TermNum:          term,
		Number:           payload.Number,
		Title:            payload.Title,
		DocumentType:     payload.DocumentType,
		DocumentTypeEnum: payload.DocumentTypeEnum,
		Passed:           payload.Passed,
		StartDate:        startDate,
		ClosureDate:      closureDate,
		ChangeDate:       changeDate,
		Description:      payload.Description,
		TitleFinal:       payload.TitleFinal,
	}

	flat := sejm.FlattenStages(payload.Stages)
	stages := make([]models.ProcessStage, 0, len(flat))
	for i := range flat {
		s := &flat[i]
		stageDate, err := parseTimePtr(s.Date)
		if err != nil {
			return nil, nil, fmt.Errorf("process %s stage %d date: %w", payload.Number, i, err)
		}
		stage := models.ProcessStage{
			ID:            stageID(id, i),
			ProcessID:     id,
			Index:         i,
			StageName:     s.StageName,
			StageType:     s.StageType,
			Date:          stageDate,
			SittingNum:    s.SittingNum,
			Decision:      s.Decision,
			CommitteeCode: s.CommitteeCode,
		}
		if s.Voting != nil {
			ref := votingID(term, s.Voting.Sitting, s.Voting.VotingNumber)
			stage.VotingID = &ref
		}
		stages = append(stages, stage)
	}
	return process, stages, nil
}
