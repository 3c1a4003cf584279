// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/library"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// countingStore counts Set calls on top of a memory store.
type countingStore struct {
	*kvstore.Memory
	sets int
}

func (store *countingStore) Set(ctx context.Context, key, value string) error {
	store.sets++
	return store.Memory.Set(ctx, key, value)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReadyManager(t *testing.T, store kvstore.Store) *library.Manager {
	t.Helper()
	manager := library.NewManager(store, discardLogger())
	manager.Start(context.Background())
	require.NoError(t, manager.WaitReady(context.Background()))
	return manager
}

/*
TestManager_SetSemantics verifies add/remove/contains follow set semantics.
*/
func TestManager_SetSemantics(t *testing.T) {
	store := &countingStore{Memory: kvstore.NewMemory()}
	manager := newReadyManager(t, store)

	// 1. Duplicate add keeps the size and does not write twice
	manager.Add("the-crimson-cipher")
	manager.Add("the-crimson-cipher")
	assert.Equal(t, 1, manager.Len())
	assert.Equal(t, 1, store.sets)

	// 2. Removing an absent id is a no-op
	manager.Remove("echoes-of-nebula")
	assert.Equal(t, 1, manager.Len())
	assert.Equal(t, 1, store.sets)

	// 3. Contains reflects the history
	manager.Add("echoes-of-nebula")
	assert.True(t, manager.Contains("the-crimson-cipher"))
	assert.True(t, manager.Contains("echoes-of-nebula"))

	manager.Remove("the-crimson-cipher")
	assert.False(t, manager.Contains("the-crimson-cipher"))
	assert.Equal(t, []string{"echoes-of-nebula"}, manager.List())
}

/*
TestManager_PersistedFormat checks the stored blob is a JSON array of ids.
*/
func TestManager_PersistedFormat(t *testing.T) {
	store := kvstore.NewMemory()
	manager := newReadyManager(t, store)

	manager.Add("a")
	manager.Add("b")

	raw, err := store.Get(context.Background(), library.StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, raw)
}

/*
TestManager_Hydration verifies a stored library is restored and deduplicated.
*/
func TestManager_Hydration(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, library.StorageKey, `["a","b","a"]`))

	manager := library.NewManager(store, discardLogger())
	assert.False(t, manager.IsReady())
	assert.Empty(t, manager.List())

	manager.Start(ctx)
	require.NoError(t, manager.WaitReady(ctx))

	assert.True(t, manager.IsReady())
	assert.Equal(t, []string{"a", "b"}, manager.List())
}

/*
TestManager_CorruptedStore falls back to an empty library.
*/
func TestManager_CorruptedStore(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, library.StorageKey, `{"a": true}`))

	manager := newReadyManager(t, store)

	assert.True(t, manager.IsReady())
	assert.Equal(t, 0, manager.Len())
}

/*
TestManager_Toggle covers the save/unsave button behaviour.
*/
func TestManager_Toggle(t *testing.T) {
	manager := newReadyManager(t, kvstore.NewMemory())

	assert.True(t, manager.Toggle("x"))
	assert.True(t, manager.Contains("x"))
	assert.False(t, manager.Toggle("x"))
	assert.False(t, manager.Contains("x"))
}

/*
TestManager_ListIsCopy ensures callers cannot mutate internal state.
*/
func TestManager_ListIsCopy(t *testing.T) {
	manager := newReadyManager(t, kvstore.NewMemory())
	manager.Add("a")

	entries := manager.List()
	entries[0] = "mutated"

	assert.True(t, manager.Contains("a"))
}
