// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// stateKeyPrefix namespaces task state inside the Badger keyspace.
const stateKeyPrefix = "syncstate:"

// BadgerStore implements Store using BadgerDB for durable storage.
// All tasks share one database; each task's state lives under one key, so
// a Save is a single transactional write.
type BadgerStore struct {
	db    *badger.DB
	owned bool
}

// NewBadgerStore opens (or creates) a Badger database under dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state: badger store requires a directory")
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logger is noisy; callers log through zerolog.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: open badger: %w", err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStoreWithDB wraps an already-open database. The caller keeps
// ownership and must close the database itself.
func NewBadgerStoreWithDB(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func stateKey(task string) []byte {
	return []byte(stateKeyPrefix + task)
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context, task string) (*SyncState, error) {
	if err := validTaskName(task); err != nil {
		return nil, err
	}

	st := New()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(task))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("state: get %s: %w", task, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, st)
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Save implements Store.
func (s *BadgerStore) Save(_ context.Context, task string, st *SyncState) error {
	if err := validTaskName(task); err != nil {
		return err
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", task, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(stateKey(task), data); err != nil {
			return fmt.Errorf("state: set %s: %w", task, err)
		}
		return nil
	})
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, task string) error {
	if err := validTaskName(task); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(stateKey(task)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("state: delete %s: %w", task, err)
		}
		return nil
	})
}

// Close implements Store. Closes the database only if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
