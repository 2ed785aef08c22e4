// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store backend identifiers.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

var (
	// ErrNotFound is returned by Load when no state has been persisted for
	// the task yet. Callers treat this as "run the initial reconciliation".
	ErrNotFound = errors.New("state: not found")

	// ErrInvalidTaskName is returned for task names that cannot be used as
	// storage keys.
	ErrInvalidTaskName = errors.New("state: invalid task name")
)

// Store persists SyncState between passes, addressed by task name.
//
// Implementations must make Save atomic per call: a crash mid-save must
// leave either the previous state or the new state readable, never a
// partial write. The engine relies on this for its all-or-nothing pass
// semantics.
type Store interface {
	// Load returns the persisted state for the task, or ErrNotFound if the
	// task has never completed a pass.
	Load(ctx context.Context, task string) (*SyncState, error)

	// Save durably replaces the task's state.
	Save(ctx context.Context, task string, st *SyncState) error

	// Delete removes the task's state. Deleting absent state is a no-op.
	Delete(ctx context.Context, task string) error

	// Close releases backend resources.
	Close() error
}

// StoreConfig selects and configures a store backend.
type StoreConfig struct {
	// Backend is "file" (default) or "badger".
	Backend string `koanf:"backend"`

	// Dir is the state directory. The file backend writes one JSON file
	// per task here; the badger backend opens its database under it.
	Dir string `koanf:"dir"`
}

// NewStore creates a Store for the configured backend.
//
// The file backend is the default and keeps one human-inspectable JSON file
// per task. The badger backend trades inspectability for transactional
// storage and is preferred when many tasks share one state directory.
func NewStore(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.Dir)
	case BackendBadger:
		return NewBadgerStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("state: unknown backend %q", cfg.Backend)
	}
}

// validTaskName rejects names that would escape the storage namespace.
func validTaskName(task string) error {
	if task == "" || strings.ContainsAny(task, "/\\") || task == "." || task == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidTaskName, task)
	}
	return nil
}
