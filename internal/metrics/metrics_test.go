// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAPIRequestCountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("votings", "success"))

	ObserveAPIRequest("votings", "success", time.Now())

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("votings", "success"))
	if after != before+1 {
		t.Errorf("request counter = %v, want %v", after, before+1)
	}
}

func TestObserveDBQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert", "voting"))

	var nilErr error
	ObserveDBQuery("upsert", "voting", time.Now(), &nilErr)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert", "voting")); got != before {
		t.Errorf("nil error should not increment error counter, got %v want %v", got, before)
	}

	realErr := errors.New("constraint violation")
	ObserveDBQuery("upsert", "voting", time.Now(), &realErr)
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert", "voting")); got != before+1 {
		t.Errorf("error counter = %v, want %v", got, before+1)
	}
}

func TestSyncEntitiesCounter(t *testing.T) {
	before := testutil.ToFloat64(SyncEntitiesTotal.WithLabelValues("voting", "synced"))

	SyncEntitiesTotal.WithLabelValues("voting", "synced").Inc()

	after := testutil.ToFloat64(SyncEntitiesTotal.WithLabelValues("voting", "synced"))
	if after != before+1 {
		t.Errorf("sync entities counter = %v, want %v", after, before+1)
	}
}
