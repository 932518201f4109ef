// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package config holds the layered application configuration.
//
// Configuration is loaded via Koanf v2 with three layers (highest priority
// wins): environment variables, an optional YAML config file, and built-in
// defaults. See Load in koanf.go.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for Plenum.
type Config struct {
	Sejm     SejmConfig     `koanf:"sejm"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SejmConfig configures the Sejm API client.
type SejmConfig struct {
	// BaseURL is the API root, e.g. https://api.sejm.gov.pl/sejm
	BaseURL string `koanf:"base_url"`

	// Timeout bounds every single HTTP request.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is the sustained request rate in requests per second.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the short-term burst allowance.
	RateBurst int `koanf:"rate_burst"`

	// RetryAttempts caps retries of transient failures per request.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBaseDelay is the first backoff delay; doubles each attempt.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration `koanf:"retry_max_delay"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file location. Empty means in-memory (tests).
	Path string `koanf:"path"`

	// MaxMemory is DuckDB's memory limit, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads for DuckDB; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SyncConfig configures the sync pipeline.
type SyncConfig struct {
	// Terms limits sync scope to the listed term numbers; empty means every
	// term the API reports.
	Terms []int `koanf:"terms"`

	// Interval between periodic sync runs.
	Interval time.Duration `koanf:"interval"`

	// Workers is the size of the vote-detail fetch pool.
	Workers int `koanf:"workers"`

	// BatchSize caps how many stale votings are dispatched to the fetch pool
	// at once; a batch is fully persisted before the next one starts.
	BatchSize int `koanf:"batch_size"`

	// ProcessPageSize is the page size for the paginated process list.
	ProcessPageSize int `koanf:"process_page_size"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the loaded configuration for values that would make the
// process misbehave at runtime.
func (c *Config) Validate() error {
	if c.Sejm.BaseURL == "" {
		return fmt.Errorf("sejm.base_url must not be empty")
	}
	if c.Sejm.Timeout <= 0 {
		return fmt.Errorf("sejm.timeout must be positive, got %v", c.Sejm.Timeout)
	}
	if c.Sejm.RateLimit <= 0 {
		return fmt.Errorf("sejm.rate_limit must be positive, got %v", c.Sejm.RateLimit)
	}
	if c.Sejm.RetryAttempts < 1 {
		return fmt.Errorf("sejm.retry_attempts must be at least 1, got %d", c.Sejm.RetryAttempts)
	}
	if c.Sejm.RetryBaseDelay <= 0 || c.Sejm.RetryMaxDelay < c.Sejm.RetryBaseDelay {
		return fmt.Errorf("sejm retry delays invalid: base=%v max=%v",
			c.Sejm.RetryBaseDelay, c.Sejm.RetryMaxDelay)
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers)
	}
	if c.Sync.BatchSize < 1 {
		return fmt.Errorf("sync.batch_size must be at least 1, got %d", c.Sync.BatchSize)
	}
	if c.Sync.ProcessPageSize < 1 {
		return fmt.Errorf("sync.process_page_size must be at least 1, got %d", c.Sync.ProcessPageSize)
	}
	for _, t := range c.Sync.Terms {
		if t < 1 {
			return fmt.Errorf("sync.terms contains invalid term number %d", t)
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	return nil
}
