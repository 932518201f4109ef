// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package api

import (
	"github.com/plenumlab/plenum/internal/analytics"
	"github.com/plenumlab/plenum/internal/database"
	syncpkg "github.com/plenumlab/plenum/internal/sync"
	"github.com/plenumlab/plenum/internal/validation"
)

// The production types must keep satisfying the handler interfaces.
var (
	_ Reader            = (*database.DB)(nil)
	_ Syncer            = (*syncpkg.Manager)(nil)
	_ AnalyticsProvider = (*analytics.Engine)(nil)
	_ Validator         = (*validation.Checker)(nil)
)
