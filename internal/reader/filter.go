// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"slices"
	"strings"
	"time"

	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/pkg/slug"
)

// Listing orders accepted by [NovelFilter].
const (
	SortCatalog = ""
	SortRecent  = "recent"
)

// releaseDateLayouts are tried in order when sorting by release date.
var releaseDateLayouts = []string{time.RFC3339, time.DateOnly}

// NovelFilter narrows and orders the catalogue listing. The zero value keeps
// every novel in catalogue order.
type NovelFilter struct {
	// Query matches title, author, tags and category, ignoring case and accents.
	Query string

	Category  string
	Status    string
	AgeRating string

	// Tags must all be present on a novel.
	Tags []string

	InLibrary bool

	// Sort is SortCatalog or SortRecent (newest release first, undated last).
	Sort string
}

// matches reports whether listing passes every filter.
func (filter NovelFilter) matches(listing NovelListing) bool {
	if filter.InLibrary && !listing.InLibrary {
		return false
	}
	if !sameOrAny(filter.Category, listing.Category) ||
		!sameOrAny(filter.Status, listing.Status) ||
		!sameOrAny(filter.AgeRating, listing.AgeRating) {
		return false
	}
	for _, tag := range filter.Tags {
		if !slices.ContainsFunc(listing.Tags, func(have string) bool { return strings.EqualFold(have, tag) }) {
			return false
		}
	}
	return strings.TrimSpace(filter.Query) == "" || searchable(listing.NovelSummary, filter.Query)
}

// sameOrAny matches an optional exact filter value.
func sameOrAny(want, have string) bool {
	return want == "" || strings.EqualFold(want, have)
}

// searchable reports whether any text field of novel contains query.
func searchable(novel catalog.NovelSummary, query string) bool {
	fields := append([]string{novel.Title, novel.Author, novel.Category}, novel.Tags...)

	needle := strings.ToLower(strings.TrimSpace(query))
	folded := slug.From(query)

	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
		// Accent and punctuation insensitive: "échoes" finds "Echoes of Nebula".
		if folded != "" && strings.Contains(slug.From(field), folded) {
			return true
		}
	}
	return false
}

// sortRecent orders listings by release date, newest first. Undated or
// unparsable entries keep their relative order at the end.
func sortRecent(listings []NovelListing) {
	slices.SortStableFunc(listings, func(a, b NovelListing) int {
		first, firstOK := releaseDate(a.ReleaseDate)
		second, secondOK := releaseDate(b.ReleaseDate)
		switch {
		case firstOK && secondOK:
			return second.Compare(first)
		case firstOK:
			return -1
		case secondOK:
			return 1
		default:
			return 0
		}
	})
}

func releaseDate(value string) (time.Time, bool) {
	for _, layout := range releaseDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
