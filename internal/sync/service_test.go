// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/plenumlab/plenum/internal/models"
)

type fakeRunner struct {
	mu    stdsync.Mutex
	calls int
	err   error
}

func (r *fakeRunner) SyncAll(context.Context, []int, bool) ([]*models.SyncReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil, r.err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestServiceSyncsOnStartupAndOnTicks(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService(runner, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return runner.callCount() >= 3 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve returned %v, want context.Canceled", err)
	}
}

func TestServiceKeepsRunningAfterSyncFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("api down")}
	svc := NewService(runner, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return runner.callCount() >= 2 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve returned %v, want context.Canceled", err)
	}
}

func TestServiceZeroIntervalSyncsOnce(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService(runner, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return runner.callCount() == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := runner.callCount(); got != 1 {
		t.Fatalf("calls = %d with zero interval, want 1", got)
	}
	cancel()
	<-done
}

func TestServiceString(t *testing.T) {
	if got := NewService(&fakeRunner{}, time.Minute).String(); got != "sync-scheduler" {
		t.Fatalf("String() = %q", got)
	}
}
