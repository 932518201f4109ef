// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sync

import (
	"context"
	"sync"

	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/models"
	"github.com/plenumlab/plenum/internal/models/sejm"
	"github.com/plenumlab/plenum/internal/sejmapi"
)

type votingJob struct {
	summary     sejm.Voting
	id          string
	fingerprint string
}

type votingResult struct {
	job     votingJob
	details *sejm.VotingDetails
	err     error
}

// syncVotings walks every sitting's voting list, skips votings whose
// list-level payload is unchanged, and fetches the stale ones' details
// through a bounded worker pool, in batches of cfg.BatchSize. All writes
// happen on this goroutine: the workers only fetch.
func (m *Manager) syncVotings(ctx context.Context, term int, force bool, sittings []int, report *models.SyncReport) error {
	log := logging.Ctx(ctx)

	batch := m.cfg.BatchSize
	if batch < 1 {
		batch = 50
	}

	for _, sitting := range sittings {
		summaries, err := m.client.Votings(ctx, term, sitting)
		if err != nil {
			m.recordFail(report, models.EntityVoting, sittingID(term, sitting), err)
			continue
		}

		var jobs []votingJob
		for i := range summaries {
			s := &summaries[i]
			id := votingID(term, s.Sitting, s.VotingNumber)

			fresh, fp, err := m.checkFresh(ctx, models.EntityVoting, id, s, force)
			if err != nil {
				return err
			}
			if fresh {
				m.recordSkip(report, models.EntityVoting)
				continue
			}
			jobs = append(jobs, votingJob{summary: *s, id: id, fingerprint: fp})
		}
		if len(jobs) == 0 {
			continue
		}

		log.Debug().Int("sitting", sitting).Int("stale", len(jobs)).Msg("fetching voting details")
		for start := 0; start < len(jobs); start += batch {
			end := start + batch
			if end > len(jobs) {
				end = len(jobs)
			}
			if err := m.fetchAndStoreVotings(ctx, term, jobs[start:end], report); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchAndStoreVotings runs the detail fetches for one sitting's stale
// votings concurrently and persists results sequentially as they arrive.
func (m *Manager) fetchAndStoreVotings(ctx context.Context, term int, jobs []votingJob, report *models.SyncReport) error {
	workers := m.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan votingJob)
	resultCh := make(chan votingResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				details, err := m.client.Voting(ctx, term, job.summary.Sitting, job.summary.VotingNumber)
				resultCh <- votingResult{job: job, details: details, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()
	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Single writer: results are persisted here, one at a time. On a fatal
	// store error the remaining results are drained but not written.
	var fatalErr error
	for result := range resultCh {
		if fatalErr != nil {
			continue
		}
		if err := m.storeVotingResult(ctx, term, result, report); err != nil {
			fatalErr = err
		}
	}
	return fatalErr
}

func (m *Manager) storeVotingResult(ctx context.Context, term int, result votingResult, report *models.SyncReport) error {
	if result.err != nil {
		if sejmapi.IsNotFound(result.err) {
			// listed but without a detail record: a valid empty outcome, not
			// a failure. The list fingerprint is recorded so the id is not
			// re-attempted until its list entry changes.
			logging.Ctx(ctx).Warn().Str("voting", result.job.id).Msg("listed voting has no detail record")
			if err := m.fresh.MarkSynced(ctx, string(models.EntityVoting), result.job.id, result.job.fingerprint); err != nil {
				return fatal(err)
			}
			m.recordSkip(report, models.EntityVoting)
			return nil
		}
		m.recordFail(report, models.EntityVoting, result.job.id, result.err)
		return nil
	}

	voting, err := transformVoting(term, &result.details.Voting)
	if err != nil {
		m.recordFail(report, models.EntityVoting, result.job.id, err)
		return nil
	}
	votes := transformVotes(term, voting.ID, result.details.Votes)

	if err := m.store.SaveVoting(ctx, voting, votes); err != nil {
		return fatal(err)
	}
	if err := m.fresh.MarkSynced(ctx, string(models.EntityVoting), result.job.id, result.job.fingerprint); err != nil {
		return fatal(err)
	}
	m.recordSynced(report, models.EntityVoting)
	return nil
}
