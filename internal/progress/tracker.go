// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package progress tracks where a reader stands in every novel.

One [Record] per novel keeps the furthest chapter visited plus the raw scroll
measurement of that chapter. Read state of every other chapter is inferred
monotonically: chapters before the current one are read, chapters after it are
unread.

Scroll samples are throttled: at most one write per window, carrying the latest
sample of each novel, flushed on the trailing edge. Explicit actions (visit,
mark read, mark unread) are written immediately.

The whole map is persisted as one JSON object under [StorageKey].
*/
package progress

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/taibuivan/storyweaver/internal/platform/metrics"
	"github.com/taibuivan/storyweaver/internal/storage/binding"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// StorageKey is the only store key written by the [Tracker].
const StorageKey = "progress"

// # Errors

var (
	// ErrInvalidNovel is returned for an empty novel identifier.
	ErrInvalidNovel = errors.New("progress: novel id is required")

	// ErrInvalidChapter is returned for a chapter id lower than 1.
	ErrInvalidChapter = errors.New("progress: chapter id must be positive")

	// ErrInvalidMeasurement is returned for NaN or infinite scroll values.
	ErrInvalidMeasurement = errors.New("progress: scroll measurement must be finite")
)

// # Options

// Option configures a [Tracker].
type Option func(*Tracker)

// WithThrottleInterval overrides [DefaultThrottleInterval].
func WithThrottleInterval(interval time.Duration) Option {
	return func(tracker *Tracker) {
		if interval > 0 {
			tracker.window = newThrottle(interval)
		}
	}
}

// # Tracker

// Tracker is the Reading Progress Tracker.
//
// Reads never block on I/O. Writes are serialized by mu, which is always taken
// before the binding's own lock.
type Tracker struct {
	binding *binding.Binding[Map]
	logger  *slog.Logger

	mu     sync.Mutex
	window throttle
	closed bool
}

// NewTracker constructs a tracker over store. Hydration starts when
// [Tracker.Start] is called.
func NewTracker(store kvstore.Store, logger *slog.Logger, options ...Option) *Tracker {
	tracker := &Tracker{
		binding: binding.New(store, StorageKey, Map{},
			binding.WithLogger(logger),
			binding.WithSchema(progressSchema),
		),
		logger: logger,
		window: newThrottle(DefaultThrottleInterval),
	}

	for _, option := range options {
		option(tracker)
	}

	return tracker
}

// Start begins asynchronous hydration.
func (tracker *Tracker) Start(context context.Context) {
	tracker.binding.Start(context)
}

// WaitReady blocks until hydration has been attempted or context is done.
func (tracker *Tracker) WaitReady(context context.Context) error {
	return tracker.binding.WaitReady(context)
}

// IsReady reports whether the stored progress has been loaded. Until then
// statuses are derived from an empty map and must not be shown as truth.
func (tracker *Tracker) IsReady() bool {
	return tracker.binding.IsReady()
}

// State exposes the binding lifecycle.
func (tracker *Tracker) State() binding.State {
	return tracker.binding.State()
}

// # Mutations

/*
RecordVisit marks chapterID as the chapter the reader is on.

Description: Visiting the chapter already recorded keeps its scroll state and
writes nothing, so repeated calls are idempotent. Visiting another chapter
resets the record to "not yet measured".

Returns:
  - error: ErrInvalidNovel or ErrInvalidChapter
*/
func (tracker *Tracker) RecordVisit(novelID string, chapterID ChapterID) error {
	if err := validateTarget(novelID, chapterID); err != nil {
		return err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	// A pending sample for another chapter would regress the visit on flush.
	if pending, ok := tracker.window.pendingFor(novelID); ok && pending.chapterID != chapterID {
		tracker.window.discard(novelID)
	}

	changed := tracker.binding.UpdateIf(func(previous Map) (Map, bool) {
		if record, ok := previous[novelID]; ok && record.CurrentChapterID == chapterID {
			return previous, false
		}
		next := previous.clone()
		next[novelID] = Record{CurrentChapterID: chapterID}
		return next, true
	})

	if changed {
		tracker.logger.Debug("progress_chapter_visited",
			slog.String("novel_id", novelID),
			slog.Int("chapter_id", int(chapterID)),
		)
	}
	return nil
}

/*
RecordScroll samples the scroll state of chapterID.

Description: Samples are coalesced per novel and written once per throttle
window with the latest values. Negative measurements are clamped to zero.

Returns:
  - error: ErrInvalidNovel, ErrInvalidChapter or ErrInvalidMeasurement
*/
func (tracker *Tracker) RecordScroll(novelID string, chapterID ChapterID, scrollPosition, scrollableHeight float64) error {
	if err := validateTarget(novelID, chapterID); err != nil {
		return err
	}
	if !finite(scrollPosition) || !finite(scrollableHeight) {
		return ErrInvalidMeasurement
	}

	metrics.ScrollSamplesTotal.Inc()

	s := sample{
		chapterID: chapterID,
		position:  math.Max(0, scrollPosition),
		height:    math.Max(0, scrollableHeight),
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	// After Close there is no window left to flush later.
	if tracker.closed {
		tracker.flushLocked(map[string]sample{novelID: s})
		return nil
	}

	tracker.window.push(novelID, s, tracker.expire)
	return nil
}

/*
MarkChapterRead pins chapterID to 100%.

Description: The measured height of the current record is kept when it belongs
to the same chapter; otherwise a unit height is used. Any pending scroll sample
for the novel is discarded so the explicit action wins.
*/
func (tracker *Tracker) MarkChapterRead(novelID string, chapterID ChapterID) error {
	return tracker.pin(novelID, chapterID, true)
}

// MarkChapterUnread pins chapterID to 0%.
func (tracker *Tracker) MarkChapterUnread(novelID string, chapterID ChapterID) error {
	return tracker.pin(novelID, chapterID, false)
}

func (tracker *Tracker) pin(novelID string, chapterID ChapterID, read bool) error {
	if err := validateTarget(novelID, chapterID); err != nil {
		return err
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	tracker.window.discard(novelID)

	tracker.binding.Update(func(previous Map) Map {
		height := 1.0
		if record, ok := previous[novelID]; ok && record.CurrentChapterID == chapterID && record.ScrollableHeight > 0 {
			height = record.ScrollableHeight
		}

		position := 0.0
		if read {
			position = height
		}

		next := previous.clone()
		next[novelID] = Record{
			CurrentChapterID: chapterID,
			ScrollPosition:   position,
			ScrollableHeight: height,
		}
		return next
	})

	tracker.logger.Debug("progress_chapter_pinned",
		slog.String("novel_id", novelID),
		slog.Int("chapter_id", int(chapterID)),
		slog.Bool("read", read),
	)
	return nil
}

// # Throttle Lifecycle

// Flush writes every pending scroll sample now. Views call it on unmount so
// the final position of a reading session is not lost.
func (tracker *Tracker) Flush() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if batch := tracker.window.take(); len(batch) > 0 {
		tracker.flushLocked(batch)
	}
}

// Close flushes pending samples and stops throttling; later samples are
// written directly.
func (tracker *Tracker) Close() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if batch := tracker.window.take(); len(batch) > 0 {
		tracker.flushLocked(batch)
	}
	tracker.closed = true
}

// expire runs when a throttle window closes.
func (tracker *Tracker) expire(generation uint64) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if !tracker.window.current(generation) {
		return
	}
	if batch := tracker.window.take(); len(batch) > 0 {
		tracker.flushLocked(batch)
	}
}

// flushLocked applies batch in a single binding update. Callers hold mu.
func (tracker *Tracker) flushLocked(batch map[string]sample) {
	tracker.binding.Update(func(previous Map) Map {
		next := previous.clone()
		for novelID, s := range batch {
			next[novelID] = Record{
				CurrentChapterID: s.chapterID,
				ScrollPosition:   s.position,
				ScrollableHeight: s.height,
			}
		}
		return next
	})
	metrics.ScrollFlushesTotal.Inc()
}

// # Queries

// ChapterStatus derives the read state of chapterID. It is pure and performs no I/O.
func (tracker *Tracker) ChapterStatus(novelID string, chapterID ChapterID) Status {
	var status Status
	tracker.binding.View(func(progress Map) {
		status = progress.ChapterStatus(novelID, chapterID)
	})
	return status
}

// Record returns the stored record of novelID.
func (tracker *Tracker) Record(novelID string) (Record, bool) {
	var (
		record Record
		found  bool
	)
	tracker.binding.View(func(progress Map) {
		record, found = progress[novelID]
	})
	return record, found
}

// Snapshot returns a copy of the whole progress map.
func (tracker *Tracker) Snapshot() Map {
	var snapshot Map
	tracker.binding.View(func(progress Map) {
		snapshot = progress.clone()
	})
	return snapshot
}

/*
ContinueChapter returns the chapter a "continue reading" action should open.

Returns:
  - ChapterID: The current chapter, or firstChapter for an unstarted novel
  - bool: true when the novel has been started
*/
func (tracker *Tracker) ContinueChapter(novelID string, firstChapter ChapterID) (ChapterID, bool) {
	record, found := tracker.Record(novelID)
	if !found {
		return firstChapter, false
	}
	return record.CurrentChapterID, true
}

// ResumePosition returns the scroll offset to restore when reopening
// chapterID, if it is the novel's current chapter.
func (tracker *Tracker) ResumePosition(novelID string, chapterID ChapterID) (float64, bool) {
	record, found := tracker.Record(novelID)
	if !found || record.CurrentChapterID != chapterID {
		return 0, false
	}
	return record.ScrollPosition, true
}

// Summary aggregates read state over a novel's chapter list.
type Summary struct {
	CurrentChapterID ChapterID `json:"currentChapterId,omitempty"`
	Read             int       `json:"read"`
	Total            int       `json:"total"`
	Percentage       int       `json:"percentage"`
}

// Summarize counts the read chapters among chapters.
func (tracker *Tracker) Summarize(novelID string, chapters []ChapterID) Summary {
	summary := Summary{Total: len(chapters)}

	tracker.binding.View(func(progress Map) {
		if record, ok := progress[novelID]; ok {
			summary.CurrentChapterID = record.CurrentChapterID
		}
		for _, chapterID := range chapters {
			if progress.ChapterStatus(novelID, chapterID).IsRead {
				summary.Read++
			}
		}
	})

	if summary.Total > 0 {
		summary.Percentage = int(math.Round(100 * float64(summary.Read) / float64(summary.Total)))
	}
	return summary
}

// # Helpers

func validateTarget(novelID string, chapterID ChapterID) error {
	if novelID == "" {
		return ErrInvalidNovel
	}
	if chapterID < 1 {
		return ErrInvalidChapter
	}
	return nil
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
