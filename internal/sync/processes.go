// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sync

import (
	"context"

	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/models"
	"github.com/plenumlab/plenum/internal/sejmapi"
)

// syncProcesses pages through the term's legislative processes and fetches
// details for the stale ones. The list endpoint is paginated by
// limit/offset; a short page ends the walk.
func (m *Manager) syncProcesses(ctx context.Context, term int, force bool, report *models.SyncReport) error {
	log := logging.Ctx(ctx)

	pageSize := m.cfg.ProcessPageSize
	if pageSize < 1 {
		pageSize = 50
	}

	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := m.client.Processes(ctx, term, pageSize, offset)
		if err != nil {
			m.recordFail(report, models.EntityProcess, "list", err)
			return nil
		}
		if len(page) == 0 {
			return nil
		}
		log.Debug().Int("offset", offset).Int("page", len(page)).Msg("processing process page")

		for i := range page {
			header := &page[i]
			id := processID(term, header.Number)

			fresh, fp, err := m.checkFresh(ctx, models.EntityProcess, id, header, force)
			if err != nil {
				return err
			}
			if fresh {
				m.recordSkip(report, models.EntityProcess)
				continue
			}

			details, err := m.client.Process(ctx, term, header.Number)
			if err != nil {
				if sejmapi.IsNotFound(err) {
					// listed but without a detail record; remember the list
					// entry so the id is not re-attempted until it changes
					log.Warn().Str("process", id).Msg("listed process has no detail record")
					if err := m.fresh.MarkSynced(ctx, string(models.EntityProcess), id, fp); err != nil {
						return fatal(err)
					}
					m.recordSkip(report, models.EntityProcess)
					continue
				}
				m.recordFail(report, models.EntityProcess, id, err)
				continue
			}

			process, stages, err := transformProcess(term, details)
			if err != nil {
				m.recordFail(report, models.EntityProcess, id, err)
				continue
			}
			if err := m.store.SaveProcess(ctx, process, stages); err != nil {
				return fatal(err)
			}
			if err := m.fresh.MarkSynced(ctx, string(models.EntityProcess), id, fp); err != nil {
				return fatal(err)
			}
			m.recordSynced(report, models.EntityProcess)
		}

		if len(page) < pageSize {
			return nil
		}
	}
}
