// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package progress

import (
	"maps"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// # Data Model

// ChapterID identifies a chapter within a novel. Valid ids are positive and
// strictly ordered: chapter N+1 follows chapter N.
type ChapterID int

// Record is where the reader stands in one novel.
//
// ScrollPosition and ScrollableHeight are the raw offset and the maximum
// scrollable extent at the last measurement of CurrentChapterID.
type Record struct {
	CurrentChapterID ChapterID `json:"currentChapterId"`
	ScrollPosition   float64   `json:"scrollPosition"`
	ScrollableHeight float64   `json:"scrollableHeight"`
}

// Percentage derives the completion of the current chapter in [0, 100].
// A height of zero or less means no measurement is available.
func (record Record) Percentage() int {
	if record.ScrollableHeight <= 0 {
		return 0
	}
	percentage := math.Round(100 * record.ScrollPosition / record.ScrollableHeight)
	return int(math.Max(0, math.Min(100, percentage)))
}

// Map holds one [Record] per novel identifier. It is the unit of persistence.
type Map map[string]Record

// Status is the derived read state of one chapter.
type Status struct {
	IsRead     bool `json:"isRead"`
	Percentage int  `json:"percentage"`
}

// readThreshold is the completion percentage from which a chapter counts as read.
const readThreshold = 99

var (
	statusUnread = Status{IsRead: false, Percentage: 0}
	statusRead   = Status{IsRead: true, Percentage: 100}
)

// # Monotonic Inference

/*
ChapterStatus derives the read state of chapterID in novelID.

Description: Chapters before the current one are always read, chapters after
it are always unread, and the current chapter is judged by its own scroll
measurement. Unknown novels are unread.
*/
func (progress Map) ChapterStatus(novelID string, chapterID ChapterID) Status {
	record, ok := progress[novelID]
	if !ok {
		return statusUnread
	}

	switch {
	case record.CurrentChapterID > chapterID:
		return statusRead
	case record.CurrentChapterID == chapterID:
		percentage := record.Percentage()
		return Status{IsRead: percentage >= readThreshold, Percentage: percentage}
	default:
		return statusUnread
	}
}

// clone returns a shallow copy safe to modify; records are values.
func (progress Map) clone() Map {
	if progress == nil {
		return Map{}
	}
	return maps.Clone(progress)
}

// progressSchema is the accepted shape of the stored progress blob. Anything
// else is discarded as a whole rather than partially trusted.
var progressSchema = jsonschema.MustCompileString("progress.json", `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"required": ["currentChapterId", "scrollPosition", "scrollableHeight"],
		"properties": {
			"currentChapterId": {"type": "integer", "minimum": 1},
			"scrollPosition": {"type": "number", "minimum": 0},
			"scrollableHeight": {"type": "number"}
		}
	}
}`)
