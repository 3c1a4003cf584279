// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/internal/progress"
	"github.com/taibuivan/storyweaver/internal/reader"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStore counts writes per key.
type countingStore struct {
	*kvstore.Memory

	mu   sync.Mutex
	sets map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{Memory: kvstore.NewMemory(), sets: map[string]int{}}
}

func (store *countingStore) Set(ctx context.Context, key, value string) error {
	store.mu.Lock()
	store.sets[key]++
	store.mu.Unlock()
	return store.Memory.Set(ctx, key, value)
}

func (store *countingStore) setCount(key string) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.sets[key]
}

func newRegistry(t *testing.T, store kvstore.Store, options ...reader.Option) *reader.Registry {
	t.Helper()
	registry := reader.NewRegistry(context.Background(), store, discardLogger(), options...)
	t.Cleanup(registry.Close)
	return registry
}

func readySession(t *testing.T, registry *reader.Registry, profileID string) *reader.Session {
	t.Helper()
	session, err := registry.Session(profileID)
	require.NoError(t, err)
	require.NoError(t, session.WaitReady(context.Background()))
	return session
}

func sampleCatalog(t *testing.T) *catalog.Static {
	t.Helper()
	static, err := catalog.NewStatic(catalog.Document{Novels: []catalog.NovelDocument{
		{
			NovelSummary: catalog.NovelSummary{
				ID: "the-crimson-cipher", Title: "The Crimson Cipher", Author: "Elara Vance",
				Category: "Fantasy", Status: "Ongoing", AgeRating: "Teen",
				Tags: []string{"Mystery", "Magic"}, ReleaseDate: "2023-04-01",
			},
			Chapters: []catalog.Chapter{
				{ID: 1, Title: "The Whispering Shadows", Content: "The story begins."},
				{ID: 2, Title: "A City of Secrets", Content: "The plot thickens."},
				{ID: 3, Title: "The Final Gate", Content: "It ends."},
			},
		},
		{
			NovelSummary: catalog.NovelSummary{
				ID: "echoes-of-nebula", Title: "Echoes of Nebula", Author: "Kaelen Rourke",
				Category: "Sci-Fi", Status: "Completed", AgeRating: "Mature",
				Tags: []string{"Space", "Mystery"}, ReleaseDate: "2024-01-15",
			},
			Chapters: []catalog.Chapter{
				{ID: 1, Title: "The Silent Void", Content: "A lonely ship."},
			},
		},
	}})
	require.NoError(t, err)
	return static
}

/*
TestRegistry_ProfilesAreIsolated verifies each profile writes under its own
key prefix.
*/
func TestRegistry_ProfilesAreIsolated(t *testing.T) {
	store := kvstore.NewMemory()
	registry := newRegistry(t, store)

	alice := readySession(t, registry, "alice")
	bob := readySession(t, registry, "bob")

	// 1. Write through one profile
	alice.Library.Add("the-crimson-cipher")

	// 2. The other profile is unaffected
	assert.True(t, alice.Library.Contains("the-crimson-cipher"))
	assert.False(t, bob.Library.Contains("the-crimson-cipher"))

	// 3. The raw key carries the profile prefix
	raw, err := store.Get(context.Background(), "profile:alice:library")
	require.NoError(t, err)
	assert.Contains(t, raw, "the-crimson-cipher")

	_, err = store.Get(context.Background(), "profile:bob:library")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

/*
TestRegistry_ReusesSessions verifies one session per profile.
*/
func TestRegistry_ReusesSessions(t *testing.T) {
	registry := newRegistry(t, kvstore.NewMemory())

	first, err := registry.Session("alice")
	require.NoError(t, err)
	second, err := registry.Session("alice")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.Len())
}

/*
TestRegistry_HydratesStoredState verifies a new registry sees earlier writes.
*/
func TestRegistry_HydratesStoredState(t *testing.T) {
	store := kvstore.NewMemory()

	// 1. Write with a first process
	first := reader.NewRegistry(context.Background(), store, discardLogger())
	session := readySession(t, first, "alice")
	require.NoError(t, session.Progress.MarkChapterRead("the-crimson-cipher", 2))
	require.NoError(t, session.Preferences.SetTheme("sepia"))
	first.Close()

	// 2. Hydrate with a second one
	second := newRegistry(t, store)
	restored := readySession(t, second, "alice")

	assert.True(t, restored.IsReady())
	assert.True(t, restored.Progress.ChapterStatus("the-crimson-cipher", 1).IsRead)
	assert.Equal(t, "sepia", restored.Preferences.Get().Theme)
}

/*
TestRegistry_CloseFlushesPendingScroll verifies shutdown keeps throttled
samples.
*/
func TestRegistry_CloseFlushesPendingScroll(t *testing.T) {
	store := kvstore.NewMemory()
	registry := reader.NewRegistry(context.Background(), store, discardLogger(), reader.WithThrottleInterval(time.Hour))
	session := readySession(t, registry, "alice")

	// 1. The sample is held by the throttle window
	require.NoError(t, session.Progress.RecordVisit("the-crimson-cipher", 1))
	require.NoError(t, session.Progress.RecordScroll("the-crimson-cipher", 1, 50, 100))
	assert.Equal(t, 0, session.Progress.ChapterStatus("the-crimson-cipher", 1).Percentage)

	// 2. Close writes it
	registry.Close()
	assert.Equal(t, 50, session.Progress.ChapterStatus("the-crimson-cipher", 1).Percentage)

	raw, err := store.Get(context.Background(), "profile:alice:progress")
	require.NoError(t, err)

	var stored progress.Map
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, 50.0, stored["the-crimson-cipher"].ScrollPosition)

	// 3. No new sessions after Close
	_, err = registry.Session("bob")
	assert.ErrorIs(t, err, reader.ErrClosed)

	// 4. Close is idempotent
	registry.Close()
}

/*
TestRegistry_EvictIdle verifies idle sessions are flushed and dropped while
recently used ones stay.
*/
func TestRegistry_EvictIdle(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	registry := newRegistry(t, store, reader.WithThrottleInterval(time.Hour))

	// 1. A pending sample on a session that goes idle
	alice := readySession(t, registry, "alice")
	require.NoError(t, alice.Progress.RecordVisit("the-crimson-cipher", 1))
	require.NoError(t, alice.Progress.RecordScroll("the-crimson-cipher", 1, 50, 100))

	time.Sleep(50 * time.Millisecond)
	readySession(t, registry, "bob")

	// 2. Only the idle session is evicted
	assert.Equal(t, 1, registry.EvictIdle(25*time.Millisecond))
	assert.Equal(t, 1, registry.Len())

	raw, err := store.Get(ctx, "profile:alice:progress")
	require.NoError(t, err)
	var stored progress.Map
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, 50.0, stored["the-crimson-cipher"].ScrollPosition)

	// 3. The next request hydrates a fresh session
	restored := readySession(t, registry, "alice")
	assert.NotSame(t, alice, restored)
	assert.Equal(t, 50, restored.Progress.ChapterStatus("the-crimson-cipher", 1).Percentage)
}

/*
TestRegistry_IdleEvictionInBackground verifies the sweeper drops idle sessions
on its own.
*/
func TestRegistry_IdleEvictionInBackground(t *testing.T) {
	root, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := reader.NewRegistry(root, kvstore.NewMemory(), discardLogger(),
		reader.WithIdleEviction(20*time.Millisecond, 5*time.Millisecond),
	)
	t.Cleanup(registry.Close)

	readySession(t, registry, "alice")

	assert.Eventually(t, func() bool { return registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

/*
TestRegistry_RejectsInvalidProfiles verifies ids that would break key scoping.
*/
func TestRegistry_RejectsInvalidProfiles(t *testing.T) {
	registry := newRegistry(t, kvstore.NewMemory())

	tests := []struct {
		name      string
		profileID string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"colon", "alice:library"},
		{"space", "alice smith"},
		{"too_long", strings.Repeat("a", 129)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Session(tt.profileID)
			assert.ErrorIs(t, err, reader.ErrInvalidProfile)
		})
	}

	assert.Equal(t, 0, registry.Len())
}
