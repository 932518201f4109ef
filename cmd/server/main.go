// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package main is the Plenum server entry point.
//
// Plenum syncs the Polish Sejm's open data API into a local DuckDB store
// and computes voting analytics over it: club cohesion, voting power
// indices, coalition structure, inter-club agreement, and voting
// dynamics.
//
// Startup order:
//
//  1. Configuration: defaults, optional YAML file, PLENUM_ env overrides (koanf)
//  2. Logging: zerolog, configured from the loaded settings
//  3. Database: DuckDB with the schema applied
//  4. Sejm API client: rate-limited, retried, behind a circuit breaker
//  5. Sync manager and analytics engine, wired so a data change
//     invalidates cached analytics
//  6. Supervisor tree: the periodic sync scheduler and the HTTP ops API
//     as separately supervised layers
//
// The process shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/plenumlab/plenum/internal/analytics"
	"github.com/plenumlab/plenum/internal/api"
	"github.com/plenumlab/plenum/internal/cache"
	"github.com/plenumlab/plenum/internal/config"
	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/sejmapi"
	"github.com/plenumlab/plenum/internal/supervisor"
	syncpkg "github.com/plenumlab/plenum/internal/sync"
	"github.com/plenumlab/plenum/internal/validation"
)

// analyticsMemoryTTL bounds how long a cached analytics result may be
// served from process memory before re-reading the store.
const analyticsMemoryTTL = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("base_url", cfg.Sejm.BaseURL).
		Str("db_path", cfg.Database.Path).
		Ints("terms", cfg.Sync.Terms).
		Msg("starting plenum")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	client := sejmapi.New(&cfg.Sejm)
	manager := syncpkg.NewManager(db, client, cache.NewSyncCache(db), &cfg.Sync)
	engine := analytics.NewEngine(db, analyticsMemoryTTL)
	checker := validation.NewChecker(db)

	// a sync run that changed a term's data makes its cached analytics stale
	manager.OnTermSynced(func(term int) {
		if err := engine.Invalidate(context.Background(), term); err != nil {
			logging.Error().Err(err).Int("term", term).Msg("failed to invalidate analytics")
		}
	})

	handler := api.NewHandler(db, manager, engine, checker)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.Routes(handler),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddSyncService(syncpkg.NewService(manager, cfg.Sync.Interval))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("supervisor tree failed")
	}
	logging.Info().Msg("shutdown complete")
}
