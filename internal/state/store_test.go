// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStores returns one store per backend, all rooted in temp dirs.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	badgerStore, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		BackendFile:   fileStore,
		BackendBadger: badgerStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func sampleState() *SyncState {
	st := New()
	st.Pair("p1", "o1", map[string]any{"title": "buy milk", "done": false})
	st.Pair("p2", "o2", map[string]any{"title": "write report", "done": true})
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, "gtasks", sampleState()))

			loaded, err := store.Load(ctx, "gtasks")
			require.NoError(t, err)
			require.Equal(t, 2, loaded.Len())

			obj, ok := loaded.Get("p1")
			require.True(t, ok)
			assert.Equal(t, "o1", obj.OtherID)
			assert.Equal(t, "buy milk", obj.Attributes["title"])
			assert.Equal(t, false, obj.Attributes["done"])
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	ctx := context.Background()

	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			_, err := store.Load(ctx, "never-ran")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()

	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, "gtasks", sampleState()))

			next := New()
			next.Pair("p1", "o1", map[string]any{"title": "buy oat milk"})
			require.NoError(t, store.Save(ctx, "gtasks", next))

			loaded, err := store.Load(ctx, "gtasks")
			require.NoError(t, err)
			assert.Equal(t, 1, loaded.Len())

			obj, _ := loaded.Get("p1")
			assert.Equal(t, "buy oat milk", obj.Attributes["title"])
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, "gtasks", sampleState()))
			require.NoError(t, store.Delete(ctx, "gtasks"))

			_, err := store.Load(ctx, "gtasks")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting absent state is a no-op.
			assert.NoError(t, store.Delete(ctx, "gtasks"))
		})
	}
}

func TestStoreRejectsInvalidTaskNames(t *testing.T) {
	ctx := context.Background()

	for backend, store := range openStores(t) {
		t.Run(backend, func(t *testing.T) {
			for _, name := range []string{"", "a/b", `a\b`, ".", ".."} {
				_, err := store.Load(ctx, name)
				assert.ErrorIs(t, err, ErrInvalidTaskName, "load %q", name)

				err = store.Save(ctx, name, New())
				assert.ErrorIs(t, err, ErrInvalidTaskName, "save %q", name)
			}
		})
	}
}

func TestFileStoreWritesOneFilePerTask(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "alpha", sampleState()))
	require.NoError(t, store.Save(ctx, "beta", New()))

	_, err = os.Stat(filepath.Join(dir, "alpha.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "beta.json"))
	assert.NoError(t, err)

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewStoreFactory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		want    any
		wantErr bool
	}{
		{name: "default is file", cfg: StoreConfig{Dir: t.TempDir()}, want: &FileStore{}},
		{name: "explicit file", cfg: StoreConfig{Backend: BackendFile, Dir: t.TempDir()}, want: &FileStore{}},
		{name: "badger", cfg: StoreConfig{Backend: BackendBadger, Dir: t.TempDir()}, want: &BadgerStore{}},
		{name: "unknown backend", cfg: StoreConfig{Backend: "redis", Dir: t.TempDir()}, wantErr: true},
		{name: "missing dir", cfg: StoreConfig{Backend: BackendFile}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestSyncStateClone(t *testing.T) {
	orig := sampleState()
	clone := orig.Clone()

	clone.Pair("p3", "o3", map[string]any{"title": "new"})
	obj, _ := clone.Get("p1")
	obj.Attributes["title"] = "changed"

	assert.Equal(t, 2, orig.Len())
	origObj, _ := orig.Get("p1")
	assert.Equal(t, "buy milk", origObj.Attributes["title"])
}

func TestSyncStateByOtherID(t *testing.T) {
	st := sampleState()

	obj, ok := st.ByOtherID("o2")
	require.True(t, ok)
	assert.Equal(t, "p2", obj.PrimaryID)

	_, ok = st.ByOtherID("o9")
	assert.False(t, ok)
	assert.True(t, st.HasOther("o1"))
	assert.False(t, st.HasOther("o9"))
}

func TestCloneNil(t *testing.T) {
	var st *SyncState
	assert.Nil(t, st.Clone())
}
