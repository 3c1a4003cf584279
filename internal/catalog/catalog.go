// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog describes the read-only novel catalogue consumed by reader
sessions.

The reading-state core never depends on catalogue content: an unknown novel is
simply a novel that was never visited. The catalogue is only used to derive
views such as the chapter list with read badges and the continue-reading
target.
*/
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned for an unknown novel or chapter.
var ErrNotFound = errors.New("catalog: not found")

// # Catalog Entities

// NovelSummary is the listing view of a novel.
type NovelSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	CoverURL    string   `json:"coverImageUrl,omitempty"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status,omitempty"`
	Translator  string   `json:"translator,omitempty"`
	AgeRating   string   `json:"ageRating,omitempty"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
}

// ChapterStub identifies a chapter without its content.
type ChapterStub struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Novel is the detail view of a novel.
type Novel struct {
	NovelSummary
	Chapters []ChapterStub `json:"chapters"`
}

// Chapter is a chapter with its content.
type Chapter struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// # Provider Contract

// Provider is the read-only catalogue. Implementations may be eventually
// consistent and cached.
type Provider interface {

	/*
		ListNovels returns every novel in the catalogue.

		Returns:
		  - []NovelSummary: Listing entries
		  - error: Retrieval failures
	*/
	ListNovels(context context.Context) ([]NovelSummary, error)

	/*
		NovelDetails returns a novel with its chapter list ordered by id.

		Returns:
		  - *Novel: Hydrated novel
		  - error: ErrNotFound if the novel is unknown
	*/
	NovelDetails(context context.Context, novelID string) (*Novel, error)

	/*
		ChapterContent returns one chapter with its content.

		Returns:
		  - *Chapter: Chapter content
		  - error: ErrNotFound if the novel or chapter is unknown
	*/
	ChapterContent(context context.Context, novelID string, chapterID int) (*Chapter, error)
}
