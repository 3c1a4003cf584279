// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/internal/platform/constants"
	"github.com/taibuivan/storyweaver/internal/progress"
	"github.com/taibuivan/storyweaver/pkg/slice"
)

// # Views

// NovelListing is a catalogue entry annotated with the reader's library state.
type NovelListing struct {
	catalog.NovelSummary
	InLibrary bool `json:"inLibrary"`
}

// ChapterView is a chapter stub with its derived read state.
type ChapterView struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	IsRead     bool   `json:"isRead"`
	Percentage int    `json:"percentage"`
	IsCurrent  bool   `json:"isCurrent"`
}

// ContinueTarget is the chapter a "continue reading" action opens.
type ContinueTarget struct {
	ChapterID      int     `json:"chapterId"`
	Started        bool    `json:"started"`
	ResumePosition float64 `json:"resumePosition"`
}

// NovelOverview is the novel details page of one reader.
type NovelOverview struct {
	Novel     catalog.NovelSummary `json:"novel"`
	Chapters  []ChapterView        `json:"chapters"`
	InLibrary bool                 `json:"inLibrary"`
	Continue  *ContinueTarget      `json:"continue,omitempty"`
	Summary   progress.Summary     `json:"summary"`
	Ready     bool                 `json:"ready"`
}

// ChapterReading is the payload of the chapter reader page.
type ChapterReading struct {
	NovelID        string          `json:"novelId"`
	Chapter        catalog.Chapter `json:"chapter"`
	Status         progress.Status `json:"status"`
	ResumePosition float64         `json:"resumePosition"`
	PreviousID     int             `json:"previousChapterId,omitempty"`
	NextID         int             `json:"nextChapterId,omitempty"`
	Ready          bool            `json:"ready"`
}

// LibraryEntry is one saved novel. Novel is nil when the catalogue no longer
// knows the id.
type LibraryEntry struct {
	NovelID string                `json:"novelId"`
	Novel   *catalog.NovelSummary `json:"novel,omitempty"`
}

// # Service Layer

// Service derives reader views from sessions and the catalogue.
type Service struct {
	registry     *Registry
	catalog      catalog.Provider
	logger       *slog.Logger
	readyTimeout time.Duration
}

// NewService constructs a new [Service].
func NewService(registry *Registry, provider catalog.Provider, logger *slog.Logger) *Service {
	return &Service{
		registry:     registry,
		catalog:      provider,
		logger:       logger,
		readyTimeout: constants.SessionReadyTimeout,
	}
}

/*
Session returns the session of profileID, waiting a bounded time for its
hydration.

Description: A session that is still hydrating after the wait is returned
anyway. Its reads report defaults and its writes are queued, which callers
surface through the ready flag.

Returns:
  - *Session: The live session
  - error: ErrInvalidProfile or ErrClosed
*/
func (service *Service) Session(ctx context.Context, profileID string) (*Session, error) {
	session, err := service.registry.Session(profileID)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, service.readyTimeout)
	defer cancel()

	if err := session.WaitReady(waitCtx); err != nil {
		service.logger.WarnContext(ctx, "reader_session_not_ready",
			slog.String("profile_id", profileID),
			slog.Any("error", err),
		)
	}
	return session, nil
}

/*
ListNovels annotates the catalogue with the library state of session and
applies filter.

Parameters:
  - context: context.Context
  - session: *Session
  - filter: NovelFilter (the zero value lists everything)

Returns:
  - []NovelListing: Matching entries in catalogue order, or by release date
    for SortRecent
  - error: Catalogue retrieval failures
*/
func (service *Service) ListNovels(context context.Context, session *Session, filter NovelFilter) ([]NovelListing, error) {
	novels, err := service.catalog.ListNovels(context)
	if err != nil {
		return nil, err
	}

	listings := slice.Map(novels, func(novel catalog.NovelSummary) NovelListing {
		return NovelListing{NovelSummary: novel, InLibrary: session.Library.Contains(novel.ID)}
	})

	listings = slice.Filter(listings, filter.matches)
	if filter.Sort == SortRecent {
		sortRecent(listings)
	}
	return listings, nil
}

// Library resolves the saved novel ids of session against the catalogue.
func (service *Service) Library(context context.Context, session *Session) ([]LibraryEntry, error) {
	novels, err := service.catalog.ListNovels(context)
	if err != nil {
		return nil, err
	}

	known := make(map[string]catalog.NovelSummary, len(novels))
	for _, novel := range novels {
		known[novel.ID] = novel
	}

	return slice.Map(session.Library.List(), func(novelID string) LibraryEntry {
		entry := LibraryEntry{NovelID: novelID}
		if novel, ok := known[novelID]; ok {
			entry.Novel = &novel
		}
		return entry
	}), nil
}

/*
NovelOverview builds the details page of novelID.

Description: Every chapter carries its derived status. The continue target is
the current chapter of a started novel, or the first chapter otherwise.

Returns:
  - *NovelOverview: The assembled view
  - error: catalog.ErrNotFound if the novel is unknown
*/
func (service *Service) NovelOverview(context context.Context, session *Session, novelID string) (*NovelOverview, error) {
	novel, err := service.catalog.NovelDetails(context, novelID)
	if err != nil {
		return nil, err
	}

	record, started := session.Progress.Record(novelID)

	chapters := slice.Map(novel.Chapters, func(stub catalog.ChapterStub) ChapterView {
		status := session.Progress.ChapterStatus(novelID, progress.ChapterID(stub.ID))
		return ChapterView{
			ID:         stub.ID,
			Title:      stub.Title,
			IsRead:     status.IsRead,
			Percentage: status.Percentage,
			IsCurrent:  started && record.CurrentChapterID == progress.ChapterID(stub.ID),
		}
	})

	ids := slice.Map(novel.Chapters, func(stub catalog.ChapterStub) progress.ChapterID {
		return progress.ChapterID(stub.ID)
	})

	overview := &NovelOverview{
		Novel:     novel.NovelSummary,
		Chapters:  chapters,
		InLibrary: session.Library.Contains(novelID),
		Summary:   session.Progress.Summarize(novelID, ids),
		Ready:     session.IsReady(),
	}

	if started || len(ids) > 0 {
		first := progress.ChapterID(0)
		if len(ids) > 0 {
			first = ids[0]
		}
		chapterID, isStarted := session.Progress.ContinueChapter(novelID, first)
		position, _ := session.Progress.ResumePosition(novelID, chapterID)
		overview.Continue = &ContinueTarget{
			ChapterID:      int(chapterID),
			Started:        isStarted,
			ResumePosition: position,
		}
	}

	return overview, nil
}

/*
ChapterReading loads chapterID for reading.

Description: Opening a chapter is a read-only view. The client reports the
visit separately so prefetches do not move the current chapter.

Returns:
  - *ChapterReading: Content, status and neighbours
  - error: catalog.ErrNotFound if the novel or chapter is unknown
*/
func (service *Service) ChapterReading(context context.Context, session *Session, novelID string, chapterID int) (*ChapterReading, error) {
	chapter, err := service.catalog.ChapterContent(context, novelID, chapterID)
	if err != nil {
		return nil, err
	}

	novel, err := service.catalog.NovelDetails(context, novelID)
	if err != nil {
		return nil, err
	}

	reading := &ChapterReading{
		NovelID: novelID,
		Chapter: *chapter,
		Status:  session.Progress.ChapterStatus(novelID, progress.ChapterID(chapterID)),
		Ready:   session.IsReady(),
	}
	reading.ResumePosition, _ = session.Progress.ResumePosition(novelID, progress.ChapterID(chapterID))

	for index, stub := range novel.Chapters {
		if stub.ID != chapterID {
			continue
		}
		if index > 0 {
			reading.PreviousID = novel.Chapters[index-1].ID
		}
		if index+1 < len(novel.Chapters) {
			reading.NextID = novel.Chapters[index+1].ID
		}
		break
	}

	return reading, nil
}
