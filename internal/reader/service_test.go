// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/internal/reader"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

func newService(t *testing.T) (*reader.Service, *reader.Session) {
	t.Helper()
	registry := newRegistry(t, kvstore.NewMemory())
	service := reader.NewService(registry, sampleCatalog(t), discardLogger())

	session, err := service.Session(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, session.IsReady())
	return service, session
}

/*
TestService_ListNovels annotates catalogue entries with the library state.
*/
func TestService_ListNovels(t *testing.T) {
	service, session := newService(t)
	ctx := context.Background()

	session.Library.Add("echoes-of-nebula")

	// 1. Full catalogue, in document order
	listings, err := service.ListNovels(ctx, session, reader.NovelFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "the-crimson-cipher", listings[0].ID)
	assert.False(t, listings[0].InLibrary)
	assert.True(t, listings[1].InLibrary)

	// 2. Library only
	listings, err = service.ListNovels(ctx, session, reader.NovelFilter{InLibrary: true})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "echoes-of-nebula", listings[0].ID)
}

/*
TestService_ListNovelsFilters covers search, exact filters, tag intersection
and the release ordering.
*/
func TestService_ListNovelsFilters(t *testing.T) {
	service, session := newService(t)
	session.Library.Add("the-crimson-cipher")

	tests := []struct {
		name   string
		filter reader.NovelFilter
		want   []string
	}{
		{"no_filter", reader.NovelFilter{}, []string{"the-crimson-cipher", "echoes-of-nebula"}},
		{"query_title", reader.NovelFilter{Query: "crimson"}, []string{"the-crimson-cipher"}},
		{"query_author_case", reader.NovelFilter{Query: "ROURKE"}, []string{"echoes-of-nebula"}},
		{"query_accent", reader.NovelFilter{Query: "Échoes"}, []string{"echoes-of-nebula"}},
		{"query_tag", reader.NovelFilter{Query: "magic"}, []string{"the-crimson-cipher"}},
		{"query_category", reader.NovelFilter{Query: "sci-fi"}, []string{"echoes-of-nebula"}},
		{"query_blank", reader.NovelFilter{Query: "   "}, []string{"the-crimson-cipher", "echoes-of-nebula"}},
		{"query_no_match", reader.NovelFilter{Query: "dragon"}, []string{}},
		{"category", reader.NovelFilter{Category: "fantasy"}, []string{"the-crimson-cipher"}},
		{"status", reader.NovelFilter{Status: "Completed"}, []string{"echoes-of-nebula"}},
		{"age_rating", reader.NovelFilter{AgeRating: "Teen"}, []string{"the-crimson-cipher"}},
		{"shared_tag", reader.NovelFilter{Tags: []string{"mystery"}}, []string{"the-crimson-cipher", "echoes-of-nebula"}},
		{"all_tags", reader.NovelFilter{Tags: []string{"Mystery", "Space"}}, []string{"echoes-of-nebula"}},
		{"disjoint_tags", reader.NovelFilter{Tags: []string{"Magic", "Space"}}, []string{}},
		{"library_and_query", reader.NovelFilter{InLibrary: true, Query: "nebula"}, []string{}},
		{"recent", reader.NovelFilter{Sort: reader.SortRecent}, []string{"echoes-of-nebula", "the-crimson-cipher"}},
		{"recent_filtered", reader.NovelFilter{Sort: reader.SortRecent, Tags: []string{"Mystery"}, Status: "ongoing"}, []string{"the-crimson-cipher"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := service.ListNovels(context.Background(), session, tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(listings))
			for _, listing := range listings {
				ids = append(ids, listing.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

/*
TestService_ListNovelsRecentUndatedLast keeps novels without a usable release
date after dated ones, in catalogue order.
*/
func TestService_ListNovelsRecentUndatedLast(t *testing.T) {
	static, err := catalog.NewStatic(catalog.Document{Novels: []catalog.NovelDocument{
		{NovelSummary: catalog.NovelSummary{ID: "undated-a", Title: "A"}},
		{NovelSummary: catalog.NovelSummary{ID: "old", Title: "Old", ReleaseDate: "2020-06-01"}},
		{NovelSummary: catalog.NovelSummary{ID: "garbled", Title: "Garbled", ReleaseDate: "someday"}},
		{NovelSummary: catalog.NovelSummary{ID: "new", Title: "New", ReleaseDate: "2025-02-03T10:00:00Z"}},
		{NovelSummary: catalog.NovelSummary{ID: "undated-b", Title: "B"}},
	}})
	require.NoError(t, err)

	registry := newRegistry(t, kvstore.NewMemory())
	service := reader.NewService(registry, static, discardLogger())
	session, err := service.Session(context.Background(), "alice")
	require.NoError(t, err)

	listings, err := service.ListNovels(context.Background(), session, reader.NovelFilter{Sort: reader.SortRecent})
	require.NoError(t, err)

	ids := make([]string, 0, len(listings))
	for _, listing := range listings {
		ids = append(ids, listing.ID)
	}
	assert.Equal(t, []string{"new", "old", "undated-a", "garbled", "undated-b"}, ids)
}

/*
TestService_Library keeps ids the catalogue no longer knows.
*/
func TestService_Library(t *testing.T) {
	service, session := newService(t)

	session.Library.Add("the-crimson-cipher")
	session.Library.Add("retired-novel")

	entries, err := service.Library(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "the-crimson-cipher", entries[0].NovelID)
	require.NotNil(t, entries[0].Novel)
	assert.Equal(t, "The Crimson Cipher", entries[0].Novel.Title)

	assert.Equal(t, "retired-novel", entries[1].NovelID)
	assert.Nil(t, entries[1].Novel)
}

/*
TestService_NovelOverview derives chapter badges and the continue target.
*/
func TestService_NovelOverview(t *testing.T) {
	service, session := newService(t)
	ctx := context.Background()

	// 1. Unstarted novel continues at the first chapter
	overview, err := service.NovelOverview(ctx, session, "the-crimson-cipher")
	require.NoError(t, err)
	require.NotNil(t, overview.Continue)
	assert.Equal(t, 1, overview.Continue.ChapterID)
	assert.False(t, overview.Continue.Started)
	assert.Equal(t, 0, overview.Summary.Read)
	assert.Equal(t, 3, overview.Summary.Total)

	// 2. Reading chapter 2 halfway
	require.NoError(t, session.Progress.RecordVisit("the-crimson-cipher", 2))
	require.NoError(t, session.Progress.MarkChapterRead("the-crimson-cipher", 2))
	require.NoError(t, session.Progress.MarkChapterUnread("the-crimson-cipher", 2))

	overview, err = service.NovelOverview(ctx, session, "the-crimson-cipher")
	require.NoError(t, err)

	assert.True(t, overview.Chapters[0].IsRead)
	assert.False(t, overview.Chapters[1].IsRead)
	assert.True(t, overview.Chapters[1].IsCurrent)
	assert.False(t, overview.Chapters[2].IsRead)
	assert.Equal(t, 2, overview.Continue.ChapterID)
	assert.True(t, overview.Continue.Started)
	assert.Equal(t, 1, overview.Summary.Read)
	assert.True(t, overview.Ready)

	// 3. Unknown novel
	_, err = service.NovelOverview(ctx, session, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

/*
TestService_ChapterReading returns content with its neighbours.
*/
func TestService_ChapterReading(t *testing.T) {
	service, session := newService(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		chapterID    int
		wantPrevious int
		wantNext     int
	}{
		{"first", 1, 0, 2},
		{"middle", 2, 1, 3},
		{"last", 3, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := service.ChapterReading(ctx, session, "the-crimson-cipher", tt.chapterID)
			require.NoError(t, err)
			assert.Equal(t, tt.chapterID, reading.Chapter.ID)
			assert.Equal(t, tt.wantPrevious, reading.PreviousID)
			assert.Equal(t, tt.wantNext, reading.NextID)
		})
	}

	// Resume position of the current chapter
	require.NoError(t, session.Progress.RecordVisit("the-crimson-cipher", 3))
	session.Progress.Close()
	require.NoError(t, session.Progress.RecordScroll("the-crimson-cipher", 3, 120, 400))

	reading, err := service.ChapterReading(ctx, session, "the-crimson-cipher", 3)
	require.NoError(t, err)
	assert.Equal(t, 120.0, reading.ResumePosition)
	assert.Equal(t, 30, reading.Status.Percentage)

	_, err = service.ChapterReading(ctx, session, "the-crimson-cipher", 9)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
