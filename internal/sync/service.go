// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sync

import (
	"context"
	"time"

	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/models"
)

// Runner abstracts the manager's sync entry point so the service can be
// tested without a real API client or store.
type Runner interface {
	SyncAll(ctx context.Context, terms []int, force bool) ([]*models.SyncReport, error)
}

// Service runs periodic sync cycles as a supervised service.
//
// It performs one sync immediately on startup, then repeats on the
// configured interval until the context is canceled. Sync failures are
// logged and do not stop the service; the next tick retries whatever
// the previous run left stale.
type Service struct {
	manager  Runner
	interval time.Duration
	name     string
}

// NewService creates a periodic sync service. An interval of zero or
// less disables the timer: the service syncs once and then waits for
// shutdown.
func NewService(manager Runner, interval time.Duration) *Service {
	return &Service{
		manager:  manager,
		interval: interval,
		name:     "sync-scheduler",
	}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	s.runOnce(ctx)

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.manager.SyncAll(ctx, nil, false); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("scheduled sync failed")
	}
}

// String implements fmt.Stringer. Suture uses this to identify the
// service in log messages.
func (s *Service) String() string {
	return s.name
}
