// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"notisync.yaml",
	"notisync.yml",
	"/etc/notisync/config.yaml",
	"/etc/notisync/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "NOTISYNC_CONFIG"

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile builds the configuration with the given file as layer 2. An
// empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
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

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables map to "" and are skipped, so unrelated environment
// variables cannot pollute the configuration.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"state_backend": "state.backend",
		"state_dir":     "state.dir",

		"sync_interval":      "sync.interval",
		"sync_conflict_mode": "sync.conflict_mode",
		"sync_rate_limit":    "sync.rate_limit",
		"sync_rate_burst":    "sync.rate_burst",

		"breaker_max_requests":         "sync.breaker.max_requests",
		"breaker_interval":             "sync.breaker.interval",
		"breaker_timeout":              "sync.breaker.timeout",
		"breaker_consecutive_failures": "sync.breaker.consecutive_failures",

		"scheduler_failure_threshold": "scheduler.failure_threshold",
		"scheduler_failure_decay":     "scheduler.failure_decay",
		"scheduler_failure_backoff":   "scheduler.failure_backoff",
		"scheduler_shutdown_timeout":  "scheduler.shutdown_timeout",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
