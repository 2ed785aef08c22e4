// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notisync/notisync/internal/state"
	"github.com/notisync/notisync/internal/sync"
	"github.com/notisync/notisync/internal/sync/synctest"
)

// ts returns a deterministic timestamp; larger n is later.
func ts(n int) time.Time {
	return time.Unix(int64(n)*1000, 0)
}

// newTestTask builds a task over two in-memory adapters with distinct
// attribute naming on each side.
func newTestTask(t *testing.T, mode sync.ConflictMode) (*sync.Task, *synctest.MemAdapter, *synctest.MemAdapter) {
	t.Helper()
	primary := synctest.NewMemAdapter("n")
	other := synctest.NewMemAdapter("g")
	other.FingerprintAttr = "name"

	task, err := sync.NewTask("test", primary, other,
		sync.AttrMap{"title": "name", "done": "completed"}, mode)
	require.NoError(t, err)
	return task, primary, other
}

// pairedFixture builds a task with one established pairing n-a <-> g-a and
// the state recording it.
func pairedFixture(t *testing.T, mode sync.ConflictMode) (*sync.Task, *synctest.MemAdapter, *synctest.MemAdapter, *state.SyncState) {
	t.Helper()
	task, primary, other := newTestTask(t, mode)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple", "done": false})
	other.Put("g-a", ts(1), map[string]any{"name": "apple", "completed": false})

	st := state.New()
	st.Pair("n-a", "g-a", map[string]any{"title": "apple", "done": false})
	return task, primary, other, st
}

func TestInitialSyncPairsByFingerprint(t *testing.T) {
	task, primary, other := newTestTask(t, sync.Newer)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple", "done": false})
	primary.Put("n-b", ts(1), map[string]any{"title": "banana", "done": true})
	other.Put("g-c", ts(2), map[string]any{"name": "apple", "completed": true})
	other.Put("g-d", ts(1), map[string]any{"name": "cherry", "completed": false})

	st, err := task.Sync(context.Background(), nil)
	require.NoError(t, err)

	// apple paired across sides; banana and cherry mirrored as new.
	require.Equal(t, 3, st.Len())
	assert.Equal(t, 3, primary.Len())
	assert.Equal(t, 3, other.Len())

	entry, ok := st.Get("n-a")
	require.True(t, ok)
	assert.Equal(t, "g-c", entry.OtherID)

	// The paired objects disagreed on done; the secondary side was modified
	// later, so newer-wins pushed true back to the primary.
	assert.Equal(t, true, primary.Attr("n-a", "done"))
	assert.Equal(t, true, entry.Attributes["done"])

	// banana's mirror carries translated attribute names.
	require.True(t, st.HasOther("g1"))
	assert.Equal(t, "banana", other.Attr("g1", "name"))
	assert.Equal(t, true, other.Attr("g1", "completed"))

	// cherry's mirror on the primary side.
	assert.Equal(t, "cherry", primary.Attr("n1", "title"))
	assert.Equal(t, false, primary.Attr("n1", "done"))
}

func TestSyncIdempotent(t *testing.T) {
	task, primary, other := newTestTask(t, sync.Newer)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple", "done": false})
	primary.Put("n-b", ts(1), map[string]any{"title": "banana", "done": true})
	other.Put("g-c", ts(2), map[string]any{"name": "apple", "completed": true})

	st, err := task.Sync(context.Background(), nil)
	require.NoError(t, err)

	primary.ResetCalls()
	other.ResetCalls()

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Zero(t, primary.MutationCalls(), "second pass must not mutate the primary side")
	assert.Zero(t, other.MutationCalls(), "second pass must not mutate the secondary side")
	assert.Equal(t, st, st2)
}

func TestPrimaryDeletionPropagates(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	primary.Remove("n-a")

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Zero(t, st2.Len())
	assert.Zero(t, other.Len(), "mirror must be deleted")
	assert.Equal(t, 1, other.CallTotals().Deletes)

	// The pre-pass state is untouched; only the returned state dropped the
	// pairing.
	assert.Equal(t, 1, st.Len())
}

func TestOtherDeletionPropagates(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	other.Remove("g-a")

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Zero(t, st2.Len())
	assert.Zero(t, primary.Len())
	assert.Equal(t, 1, primary.CallTotals().Deletes)
}

func TestBothSidesDeleted(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	primary.Remove("n-a")
	other.Remove("g-a")

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Zero(t, st2.Len())
	assert.Zero(t, primary.CallTotals().Deletes)
	assert.Zero(t, other.CallTotals().Deletes)
}

func TestPrimaryChangePushedToOther(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	primary.Object("n-a").Attrs["done"] = true

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, true, other.Attr("g-a", "completed"))
	entry, _ := st2.Get("n-a")
	assert.Equal(t, true, entry.Attributes["done"])
	assert.Equal(t, 1, other.CallTotals().Sets)
	assert.Zero(t, primary.CallTotals().Sets)
}

func TestOtherChangeStoredAsPushedValue(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	other.Object("g-a").Attrs["completed"] = true

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, true, primary.Attr("n-a", "done"))

	// The recorded baseline is the value that was pushed, so the next pass
	// sees no phantom change.
	entry, _ := st2.Get("n-a")
	assert.Equal(t, true, entry.Attributes["done"])

	primary.ResetCalls()
	other.ResetCalls()
	_, err = task.Sync(context.Background(), st2)
	require.NoError(t, err)
	assert.Zero(t, primary.MutationCalls())
	assert.Zero(t, other.MutationCalls())
}

func TestBothChangedToSameValue(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	primary.Object("n-a").Attrs["done"] = true
	other.Object("g-a").Attrs["completed"] = true

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	// Convergent edits require no pushes, only a baseline update.
	assert.Zero(t, primary.MutationCalls())
	assert.Zero(t, other.MutationCalls())
	entry, _ := st2.Get("n-a")
	assert.Equal(t, true, entry.Attributes["done"])
}

func TestConflictNewerWins(t *testing.T) {
	tests := []struct {
		name        string
		primaryTime time.Time
		otherTime   time.Time
		wantTitle   string
	}{
		{"primary newer", ts(3), ts(2), "from-primary"},
		{"other newer", ts(2), ts(3), "from-other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, primary, other, st := pairedFixture(t, sync.Newer)
			primary.Put("n-a", tt.primaryTime, map[string]any{"title": "from-primary", "done": false})
			other.Put("g-a", tt.otherTime, map[string]any{"name": "from-other", "completed": false})

			st2, err := task.Sync(context.Background(), st)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, primary.Attr("n-a", "title"))
			assert.Equal(t, tt.wantTitle, other.Attr("g-a", "name"))
			entry, _ := st2.Get("n-a")
			assert.Equal(t, tt.wantTitle, entry.Attributes["title"])
		})
	}
}

func TestConflictPreferPrimary(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.PreferPrimary)
	primary.Object("n-a").Attrs["title"] = "from-primary"
	other.Object("g-a").Attrs["name"] = "from-other"
	// The secondary side being newer must not matter under PreferPrimary.
	other.Object("g-a").Modified = ts(9)

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, "from-primary", other.Attr("g-a", "name"))
	entry, _ := st2.Get("n-a")
	assert.Equal(t, "from-primary", entry.Attributes["title"])
}

func TestConflictPreferOther(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.PreferOther)
	primary.Object("n-a").Attrs["title"] = "from-primary"
	other.Object("g-a").Attrs["name"] = "from-other"

	st2, err := task.Sync(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, "from-other", primary.Attr("n-a", "title"))
	entry, _ := st2.Get("n-a")
	assert.Equal(t, "from-other", entry.Attributes["title"])
}

func TestConflictModeFailAborts(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Fail)
	primary.Object("n-a").Attrs["title"] = "from-primary"
	other.Object("g-a").Attrs["name"] = "from-other"

	st2, err := task.Sync(context.Background(), st)
	require.Error(t, err)
	assert.Nil(t, st2)

	var conflictErr *sync.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "title", conflictErr.Attr)
	assert.Equal(t, "n-a", conflictErr.PrimaryID)
	assert.Equal(t, "g-a", conflictErr.OtherID)
}

func TestCreationVerificationFailureIsFatal(t *testing.T) {
	task, primary, other := newTestTask(t, sync.Newer)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple", "done": true})
	// The secondary side silently drops the completed flag on create.
	other.MutateOnCreate = func(attrs map[string]any) {
		attrs["completed"] = false
	}

	st, err := task.Sync(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, st, "a failed pass must not yield state")

	var verErr *sync.VerificationError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, "completed", verErr.Attr)
	assert.Equal(t, true, verErr.Want)
	assert.Equal(t, false, verErr.Got)
}

func TestMissingMappedAttribute(t *testing.T) {
	task, primary, _ := newTestTask(t, sync.Newer)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple"}) // no "done"

	_, err := task.Sync(context.Background(), nil)
	require.Error(t, err)

	var missErr *sync.MissingAttrError
	require.ErrorAs(t, err, &missErr)
	assert.Equal(t, "done", missErr.Attr)
	assert.Equal(t, "n-a", missErr.ID)
}

func TestListErrorAbortsPass(t *testing.T) {
	task, primary, _, st := pairedFixture(t, sync.Newer)
	listErr := errors.New("api unavailable")
	primary.FailList = listErr

	st2, err := task.Sync(context.Background(), st)
	require.ErrorIs(t, err, listErr)
	assert.Nil(t, st2)
}

func TestFailedPassLeavesInputStateUntouched(t *testing.T) {
	task, primary, other, st := pairedFixture(t, sync.Newer)
	primary.Put("n-b", ts(2), map[string]any{"title": "banana", "done": false})
	other.FailCreate = errors.New("quota exceeded")

	_, err := task.Sync(context.Background(), st)
	require.Error(t, err)

	assert.Equal(t, 1, st.Len())
	_, ok := st.Get("n-b")
	assert.False(t, ok)
}

func TestStateSurvivesJSONRoundTrip(t *testing.T) {
	task, primary, other := newTestTask(t, sync.Newer)
	primary.Put("n-a", ts(1), map[string]any{"title": "apple", "done": 42})
	other.Put("g-a", ts(1), map[string]any{"name": "apple", "completed": 42})

	st, err := task.Sync(context.Background(), nil)
	require.NoError(t, err)

	// Persisting and reloading turns the int into a float64; the next pass
	// must still see the value as unchanged.
	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), task.Name(), st))
	reloaded, err := store.Load(context.Background(), task.Name())
	require.NoError(t, err)

	primary.ResetCalls()
	other.ResetCalls()
	_, err = task.Sync(context.Background(), reloaded)
	require.NoError(t, err)
	assert.Zero(t, primary.MutationCalls())
	assert.Zero(t, other.MutationCalls())
}
