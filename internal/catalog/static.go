// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/taibuivan/storyweaver/pkg/slug"
)

// Document is the on-disk shape of a static catalogue.
type Document struct {
	Novels []NovelDocument `json:"novels"`
}

// NovelDocument is one novel of a [Document], chapters included.
type NovelDocument struct {
	NovelSummary
	Chapters []Chapter `json:"chapters"`
}

// Static is an in-memory [Provider] built once from a [Document].
type Static struct {
	order  []string
	novels map[string]NovelDocument
}

// LoadStatic reads a catalogue document from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}

	var document Document
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse %s: %w", path, err)
	}

	return NewStatic(document)
}

/*
NewStatic indexes document.

Description: Novels without an id get one derived from their title. Chapters
are sorted by id so consumers can rely on numeric order.

Returns:
  - *Static: The indexed catalogue
  - error: Duplicate ids or chapters without a positive id
*/
func NewStatic(document Document) (*Static, error) {
	static := &Static{novels: make(map[string]NovelDocument, len(document.Novels))}

	for _, novel := range document.Novels {
		if strings.TrimSpace(novel.ID) == "" {
			novel.ID = slug.From(novel.Title)
		}
		if novel.ID == "" {
			return nil, fmt.Errorf("catalog: novel %q has no usable id", novel.Title)
		}
		if _, exists := static.novels[novel.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate novel id %q", novel.ID)
		}

		for _, chapter := range novel.Chapters {
			if chapter.ID < 1 {
				return nil, fmt.Errorf("catalog: novel %q has a chapter with id %d", novel.ID, chapter.ID)
			}
		}

		novel.Chapters = slices.Clone(novel.Chapters)
		slices.SortFunc(novel.Chapters, func(a, b Chapter) int { return a.ID - b.ID })
		if novel.Tags == nil {
			novel.Tags = []string{}
		}

		static.novels[novel.ID] = novel
		static.order = append(static.order, novel.ID)
	}

	return static, nil
}

// Len returns the number of novels in the catalogue.
func (static *Static) Len() int {
	return len(static.order)
}

// ListNovels implements [Provider].
func (static *Static) ListNovels(context.Context) ([]NovelSummary, error) {
	summaries := make([]NovelSummary, 0, len(static.order))
	for _, id := range static.order {
		summaries = append(summaries, static.novels[id].NovelSummary)
	}
	return summaries, nil
}

// NovelDetails implements [Provider].
func (static *Static) NovelDetails(_ context.Context, novelID string) (*Novel, error) {
	novel, ok := static.novels[novelID]
	if !ok {
		return nil, ErrNotFound
	}

	stubs := make([]ChapterStub, 0, len(novel.Chapters))
	for _, chapter := range novel.Chapters {
		stubs = append(stubs, ChapterStub{ID: chapter.ID, Title: chapter.Title})
	}

	return &Novel{NovelSummary: novel.NovelSummary, Chapters: stubs}, nil
}

// ChapterContent implements [Provider].
func (static *Static) ChapterContent(_ context.Context, novelID string, chapterID int) (*Chapter, error) {
	novel, ok := static.novels[novelID]
	if !ok {
		return nil, ErrNotFound
	}

	index, found := slices.BinarySearchFunc(novel.Chapters, chapterID, func(chapter Chapter, id int) int {
		return chapter.ID - id
	})
	if !found {
		return nil, ErrNotFound
	}

	chapter := novel.Chapters[index]
	return &chapter, nil
}
