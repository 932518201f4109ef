// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/plenum/config.yaml",
	"/etc/plenum/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "PLENUM_CONFIG"

// envPrefix is stripped from environment variables before mapping them onto
// config paths: PLENUM_SEJM_BASE_URL -> sejm.base_url.
const envPrefix = "PLENUM_"

// defaultConfig returns a Config with all defaults applied. These are layered
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Sejm: SejmConfig{
			BaseURL:        "https://api.sejm.gov.pl/sejm",
			Timeout:        30 * time.Second,
			RateLimit:      10.0,
			RateBurst:      20,
			RetryAttempts:  5,
			RetryBaseDelay: 2 * time.Second,
			RetryMaxDelay:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/plenum.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Sync: SyncConfig{
			Terms:           nil, // all terms
			Interval:        6 * time.Hour,
			Workers:         8,
			BatchSize:       50,
			ProcessPageSize: 50,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8137,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Built-in defaults
//  2. Optional YAML config file (PLENUM_CONFIG or DefaultConfigPaths)
//  3. PLENUM_* environment variables (highest priority)
//
// The loaded configuration is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// PLENUM_SEJM_RETRY_ATTEMPTS -> sejm.retry_attempts etc. The first
	// underscore separates the section; the rest stays joined because field
	// names themselves contain underscores.
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processTermsList(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file. Returns the first path found,
// or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps PLENUM_* environment variable names onto config
// paths. The section name is the first token; the remainder is the field
// name with underscores preserved:
//
//	PLENUM_SEJM_BASE_URL    -> sejm.base_url
//	PLENUM_SYNC_BATCH_SIZE  -> sync.batch_size
//	PLENUM_LOGGING_LEVEL    -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// processTermsList converts a comma-separated PLENUM_SYNC_TERMS value into
// an int slice. Environment variables arrive as strings; YAML lists pass
// through untouched.
func processTermsList(k *koanf.Koanf) error {
	val := k.Get("sync.terms")
	strVal, ok := val.(string)
	if !ok || strVal == "" {
		return nil
	}

	var terms []int
	for _, part := range strings.Split(strVal, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid term number %q in sync.terms: %w", part, err)
		}
		terms = append(terms, n)
	}
	if err := k.Set("sync.terms", terms); err != nil {
		return fmt.Errorf("failed to set sync.terms: %w", err)
	}
	return nil
}
