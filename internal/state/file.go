// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// FileStore persists one JSON file per task under a state directory.
//
// Writes go through a temp file followed by rename, so a state file always
// reflects a fully-completed pass. No cross-process locking is performed;
// a task's state file is assumed to have a single writer at a time.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state: file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("state: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the state file path for a task.
func (s *FileStore) Path(task string) string {
	return filepath.Join(s.dir, task+".json")
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, task string) (*SyncState, error) {
	if err := validTaskName(task); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(task))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("state: read %s: %w", task, err)
	}

	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("state: decode %s: %w", task, err)
	}
	return st, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, task string, st *SyncState) error {
	if err := validTaskName(task); err != nil {
		return err
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", task, err)
	}

	tmp, err := os.CreateTemp(s.dir, task+".*.tmp")
	if err != nil {
		return fmt.Errorf("state: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: write %s: %w", task, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: close %s: %w", task, err)
	}

	if err := os.Rename(tmpName, s.Path(task)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: rename %s: %w", task, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, task string) error {
	if err := validTaskName(task); err != nil {
		return err
	}
	if err := os.Remove(s.Path(task)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("state: delete %s: %w", task, err)
	}
	return nil
}

// Close implements Store. The file store holds no open resources.
func (s *FileStore) Close() error {
	return nil
}
