// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

// Package config loads and validates Notisync configuration from layered
// sources: built-in defaults, an optional YAML file and environment
// variables, in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/notisync/notisync/internal/logging"
	"github.com/notisync/notisync/internal/scheduler"
	"github.com/notisync/notisync/internal/state"
	"github.com/notisync/notisync/internal/sync"
)

// Config is the root configuration for the sync engine.
type Config struct {
	Logging   LoggingConfig     `koanf:"logging"`
	State     state.StoreConfig `koanf:"state"`
	Sync      SyncConfig        `koanf:"sync"`
	Scheduler scheduler.Config  `koanf:"scheduler"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`

	// Caller includes file and line in log output.
	Caller bool `koanf:"caller"`
}

// ToLogging converts to the logging package's Config.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:     c.Level,
		Format:    c.Format,
		Caller:    c.Caller,
		Timestamp: true,
	}
}

// SyncConfig holds defaults applied to tasks that do not override them.
type SyncConfig struct {
	// Interval is the default delay between passes for repeating tasks.
	Interval time.Duration `koanf:"interval"`

	// ConflictMode is the default conflict policy: newer, primary, other
	// or error.
	ConflictMode string `koanf:"conflict_mode"`

	// RateLimit is the default adapter request budget in requests per
	// second. Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the token bucket burst for the rate limiter.
	RateBurst int `koanf:"rate_burst"`

	// Breaker configures the circuit breaker wrapped around adapters.
	Breaker sync.BreakerConfig `koanf:"breaker"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		State: state.StoreConfig{
			Backend: state.BackendFile,
			Dir:     "/data/notisync",
		},
		Sync: SyncConfig{
			Interval:     5 * time.Minute,
			ConflictMode: "newer",
			// The Notion API budget is roughly three requests per second.
			RateLimit: 3,
			RateBurst: 3,
			Breaker:   sync.DefaultBreakerConfig(),
		},
		Scheduler: scheduler.DefaultConfig(),
	}
}

// Validate checks the configuration for values that would fail later at
// task registration or store creation.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case state.BackendFile, state.BackendBadger, "":
	default:
		return fmt.Errorf("config: unknown state backend %q", c.State.Backend)
	}
	if c.State.Dir == "" {
		return fmt.Errorf("config: state.dir must not be empty")
	}

	if _, err := sync.ParseConflictMode(c.Sync.ConflictMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("config: sync.interval must not be negative")
	}
	if c.Sync.RateLimit < 0 {
		return fmt.Errorf("config: sync.rate_limit must not be negative")
	}
	if c.Sync.RateLimit > 0 && c.Sync.RateBurst < 1 {
		return fmt.Errorf("config: sync.rate_burst must be at least 1 when rate limiting is on")
	}
	return nil
}
