// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

/*
TestStores_RoundTrip runs the common contract against every local backend.
*/
func TestStores_RoundTrip(t *testing.T) {
	file, err := kvstore.NewFile(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		store kvstore.Store
	}{
		{"memory", kvstore.NewMemory()},
		{"file", file},
		{"namespace", kvstore.NewNamespace(kvstore.NewMemory(), "profile:a:")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			// 1. Absent key
			_, err := tt.store.Get(ctx, "library")
			assert.ErrorIs(t, err, kvstore.ErrNotFound)

			// 2. Write then read back
			require.NoError(t, tt.store.Set(ctx, "library", `["a"]`))
			value, err := tt.store.Get(ctx, "library")
			require.NoError(t, err)
			assert.Equal(t, `["a"]`, value)

			// 3. Overwrite
			require.NoError(t, tt.store.Set(ctx, "library", `[]`))
			value, err = tt.store.Get(ctx, "library")
			require.NoError(t, err)
			assert.Equal(t, `[]`, value)
		})
	}
}

/*
TestFile_SurvivesReopen verifies a second store instance sees earlier writes.
*/
func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := kvstore.NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "progress", `{}`))
	require.NoError(t, first.Set(ctx, "library", `["x"]`))

	second, err := kvstore.NewFile(path)
	require.NoError(t, err)

	value, err := second.Get(ctx, "progress")
	require.NoError(t, err)
	assert.Equal(t, `{}`, value)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

/*
TestFile_CorruptDocument reports the backend as unavailable.
*/
func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := kvstore.NewFile(path)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "library")
	assert.ErrorIs(t, err, kvstore.ErrUnavailable)

	err = store.Set(context.Background(), "library", `[]`)
	assert.ErrorIs(t, err, kvstore.ErrUnavailable)
}

/*
TestFile_EmptyDocument treats a zero-length file as empty.
*/
func TestFile_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	store, err := kvstore.NewFile(path)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "library")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

/*
TestNamespace_Isolation verifies two profiles never see each other's keys.
*/
func TestNamespace_Isolation(t *testing.T) {
	ctx := context.Background()
	shared := kvstore.NewMemory()

	alice := kvstore.NewNamespace(shared, "profile:alice:")
	bob := kvstore.NewNamespace(shared, "profile:bob:")

	require.NoError(t, alice.Set(ctx, "library", `["a"]`))

	_, err := bob.Get(ctx, "library")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	raw, err := shared.Get(ctx, "profile:alice:library")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, raw)
	assert.Equal(t, 1, shared.Len())
	assert.Equal(t, "profile:alice:", alice.Prefix())
}
