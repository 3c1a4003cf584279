// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/internal/platform/apperr"
	requestutil "github.com/taibuivan/storyweaver/internal/platform/request"
	"github.com/taibuivan/storyweaver/internal/platform/respond"
	"github.com/taibuivan/storyweaver/internal/platform/validate"
	"github.com/taibuivan/storyweaver/internal/preferences"
	"github.com/taibuivan/storyweaver/internal/progress"
	"github.com/taibuivan/storyweaver/pkg/convert"
	"github.com/taibuivan/storyweaver/pkg/pagination"
	"github.com/taibuivan/storyweaver/pkg/pointer"
	"github.com/taibuivan/storyweaver/pkg/query"
)

const (
	FieldItems     = "items"
	FieldTotal     = "total"
	FieldReady     = "ready"
	FieldNovelID   = "novelId"
	FieldChapterID = "chapterId"
	FieldInLibrary = "inLibrary"
	FieldQuery     = "q"
	FieldCategory  = "category"
	FieldStatus    = "status"
	FieldAgeRating = "ageRating"
	FieldTags      = "tags"
	FieldSort      = "sort"
	FieldProgress  = "progress"
	FieldStatuses  = "statuses"
)

const (
	// maxColumnWidthLength bounds the layout token clients store as column width.
	maxColumnWidthLength = 64

	// maxSearchLength bounds the free text query of the novel listing.
	maxSearchLength = 200
)

// # Handler Implementation

// Handler implements the HTTP layer for reader sessions.
type Handler struct {
	service *Service
}

// NewHandler constructs a new reader [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the library, progress, catalogue and preference
// endpoints. Every route works on the profile resolved by the middleware.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Route("/library", func(library chi.Router) {
		library.Get("/", handler.ListLibrary)
		library.Get("/{novelID}", handler.LibraryContains)
		library.Put("/{novelID}", handler.AddToLibrary)
		library.Delete("/{novelID}", handler.RemoveFromLibrary)
	})

	api.Route("/progress", func(tracking chi.Router) {
		tracking.Get("/", handler.ProgressSnapshot)
		tracking.Post("/flush", handler.FlushProgress)
		tracking.Get("/{novelID}/chapters", handler.ChapterStatuses)
		tracking.Get("/{novelID}/chapters/{chapterID}", handler.ChapterStatus)
		tracking.Post("/{novelID}/chapters/{chapterID}/visit", handler.RecordVisit)
		tracking.Post("/{novelID}/chapters/{chapterID}/scroll", handler.RecordScroll)
		tracking.Post("/{novelID}/chapters/{chapterID}/read", handler.MarkChapterRead)
		tracking.Delete("/{novelID}/chapters/{chapterID}/read", handler.MarkChapterUnread)
	})

	api.Route("/novels", func(novels chi.Router) {
		novels.Get("/", handler.ListNovels)
		novels.Get("/{novelID}", handler.NovelOverview)
		novels.Get("/{novelID}/chapters/{chapterID}", handler.ChapterReading)
	})

	api.Route("/preferences", func(settings chi.Router) {
		settings.Get("/", handler.GetPreferences)
		settings.Patch("/", handler.UpdatePreferences)
		settings.Post("/font-size/increase", handler.IncreaseFontSize)
		settings.Post("/font-size/decrease", handler.DecreaseFontSize)
	})
}

// # Library

/*
GET /api/v1/library.

Description: Returns the saved novels, resolved against the catalogue.

Response:
  - 200: {items, total, ready}
*/
func (handler *Handler) ListLibrary(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	entries, err := handler.service.Library(request.Context(), session)
	if err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	respond.OK(writer, map[string]any{
		FieldItems: entries,
		FieldTotal: len(entries),
		FieldReady: session.Library.IsReady(),
	})
}

/*
GET /api/v1/library/{novelID}.

Response:
  - 200: {novelId, inLibrary, ready}
  - 400: Validation: Malformed novel id
*/
func (handler *Handler) LibraryContains(writer http.ResponseWriter, request *http.Request) {
	session, novelID, ok := handler.sessionAndNovel(writer, request)
	if !ok {
		return
	}

	respond.OK(writer, libraryState(session, novelID))
}

/*
PUT /api/v1/library/{novelID}.

Description: Saves a novel. Saving an already saved novel changes nothing.

Response:
  - 200: {novelId, inLibrary, ready}
  - 202: Same payload; the write is queued behind hydration
*/
func (handler *Handler) AddToLibrary(writer http.ResponseWriter, request *http.Request) {
	session, novelID, ok := handler.sessionAndNovel(writer, request)
	if !ok {
		return
	}

	session.Library.Add(novelID)
	mutated(writer, session.Library.IsReady(), libraryState(session, novelID))
}

/*
DELETE /api/v1/library/{novelID}.

Description: Removes a novel. Removing an absent novel changes nothing.
*/
func (handler *Handler) RemoveFromLibrary(writer http.ResponseWriter, request *http.Request) {
	session, novelID, ok := handler.sessionAndNovel(writer, request)
	if !ok {
		return
	}

	session.Library.Remove(novelID)
	mutated(writer, session.Library.IsReady(), libraryState(session, novelID))
}

// # Progress

/*
GET /api/v1/progress.

Response:
  - 200: {progress: {novelId: record}, ready}
*/
func (handler *Handler) ProgressSnapshot(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	respond.OK(writer, map[string]any{
		FieldProgress: session.Progress.Snapshot(),
		FieldReady:    session.Progress.IsReady(),
	})
}

/*
GET /api/v1/progress/{novelID}/chapters?ids=1,2,3.

Description: Derives the status of several chapters in one call, for chapter
lists with read badges.

Response:
  - 200: {statuses: {chapterId: status}, ready}
*/
func (handler *Handler) ChapterStatuses(writer http.ResponseWriter, request *http.Request) {
	session, novelID, ok := handler.sessionAndNovel(writer, request)
	if !ok {
		return
	}

	ids := query.PositiveInts(request.URL.Query().Get("ids"))
	if len(ids) == 0 {
		respond.Error(writer, request, validate.RequiredError("ids", "At least one positive chapter id is required"))
		return
	}

	statuses := make(map[int]progress.Status, len(ids))
	for _, id := range ids {
		statuses[id] = session.Progress.ChapterStatus(novelID, progress.ChapterID(id))
	}

	respond.OK(writer, map[string]any{
		FieldNovelID:  novelID,
		FieldStatuses: statuses,
		FieldReady:    session.Progress.IsReady(),
	})
}

/*
GET /api/v1/progress/{novelID}/chapters/{chapterID}.

Response:
  - 200: {novelId, chapterId, isRead, percentage, ready}
*/
func (handler *Handler) ChapterStatus(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	respond.OK(writer, chapterState(session, novelID, chapterID))
}

/*
POST /api/v1/progress/{novelID}/chapters/{chapterID}/visit.

Description: Records that the reader opened a chapter. Revisiting the
current chapter keeps its scroll state.
*/
func (handler *Handler) RecordVisit(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	if err := session.Progress.RecordVisit(novelID, chapterID); err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	mutated(writer, session.Progress.IsReady(), chapterState(session, novelID, chapterID))
}

// scrollRequest is one scroll sample.
type scrollRequest struct {
	ScrollPosition   *float64 `json:"scrollPosition"`
	ScrollableHeight *float64 `json:"scrollableHeight"`
}

/*
POST /api/v1/progress/{novelID}/chapters/{chapterID}/scroll.

Description: Submits a scroll sample. Samples are coalesced and written at
most once per throttle window, so the returned status may lag behind.

Request:
  - body: scrollRequest

Response:
  - 202: Sample accepted
  - 400: Validation: Missing measurement
*/
func (handler *Handler) RecordScroll(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	var input scrollRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	v.Custom("scrollPosition", input.ScrollPosition == nil, "This field is required")
	v.Custom("scrollableHeight", input.ScrollableHeight == nil, "This field is required")
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := session.Progress.RecordScroll(novelID, chapterID, *input.ScrollPosition, *input.ScrollableHeight); err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	respond.Accepted(writer, chapterState(session, novelID, chapterID))
}

/*
POST /api/v1/progress/{novelID}/chapters/{chapterID}/read.

Description: Marks a chapter as fully read and makes it the current chapter.
*/
func (handler *Handler) MarkChapterRead(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	if err := session.Progress.MarkChapterRead(novelID, chapterID); err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	mutated(writer, session.Progress.IsReady(), chapterState(session, novelID, chapterID))
}

/*
DELETE /api/v1/progress/{novelID}/chapters/{chapterID}/read.

Description: Marks a chapter as unread and makes it the current chapter.
*/
func (handler *Handler) MarkChapterUnread(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	if err := session.Progress.MarkChapterUnread(novelID, chapterID); err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	mutated(writer, session.Progress.IsReady(), chapterState(session, novelID, chapterID))
}

/*
POST /api/v1/progress/flush.

Description: Writes pending scroll samples now. Clients call it when the
reader view is closed.

Response:
  - 204: Flushed
*/
func (handler *Handler) FlushProgress(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	session.Progress.Flush()
	respond.NoContent(writer)
}

// # Catalogue

/*
GET /api/v1/novels.

Request:
  - q: string (free text over title, author, tags and category)
  - category, status, ageRating: string (exact, case-insensitive)
  - tags: string (comma separated; every tag must match)
  - inLibrary: bool (only saved novels)
  - sort: "recent" (newest release first)
  - limit: int
  - page: int

Response:
  - 200: []NovelListing: Paginated list
  - 400: Validation: Unknown sort or oversized query
*/
func (handler *Handler) ListNovels(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	params := request.URL.Query()
	filter := NovelFilter{
		Query:     strings.TrimSpace(params.Get(FieldQuery)),
		Category:  strings.TrimSpace(params.Get(FieldCategory)),
		Status:    strings.TrimSpace(params.Get(FieldStatus)),
		AgeRating: strings.TrimSpace(params.Get(FieldAgeRating)),
		Tags:      query.StringSlice(params.Get(FieldTags)),
		InLibrary: convert.ToBool(params.Get(FieldInLibrary)),
		Sort:      params.Get(FieldSort),
	}

	v := &validate.Validator{}
	v.MaxLen(FieldQuery, filter.Query, maxSearchLength)
	v.OneOf(FieldSort, filter.Sort, SortCatalog, SortRecent)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	listings, err := handler.service.ListNovels(request.Context(), session, filter)
	if err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	page, meta := pagination.Window(listings, pagination.FromRequest(request))
	respond.Paginated(writer, page, meta)
}

/*
GET /api/v1/novels/{novelID}.

Response:
  - 200: NovelOverview
  - 404: ErrNotFound: Novel not found
*/
func (handler *Handler) NovelOverview(writer http.ResponseWriter, request *http.Request) {
	session, novelID, ok := handler.sessionAndNovel(writer, request)
	if !ok {
		return
	}

	overview, err := handler.service.NovelOverview(request.Context(), session, novelID)
	if err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	respond.OK(writer, overview)
}

/*
GET /api/v1/novels/{novelID}/chapters/{chapterID}.

Response:
  - 200: ChapterReading
  - 404: ErrNotFound: Chapter not found
*/
func (handler *Handler) ChapterReading(writer http.ResponseWriter, request *http.Request) {
	session, novelID, chapterID, ok := handler.sessionAndChapter(writer, request)
	if !ok {
		return
	}

	reading, err := handler.service.ChapterReading(request.Context(), session, novelID, int(chapterID))
	if err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	respond.OK(writer, reading)
}

// # Preferences

/*
GET /api/v1/preferences.

Response:
  - 200: Preferences
*/
func (handler *Handler) GetPreferences(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	respond.OK(writer, session.Preferences.Get())
}

// updatePreferencesRequest is a partial update; nil fields are left unchanged.
type updatePreferencesRequest struct {
	Theme       *string  `json:"theme"`
	Font        *string  `json:"font"`
	FontSize    *float64 `json:"fontSize"`
	LineHeight  *float64 `json:"lineHeight"`
	ColumnWidth *string  `json:"columnWidth"`
	TextAlign   *string  `json:"textAlign"`
}

/*
PATCH /api/v1/preferences.

Description: Applies a partial update. The whole payload is validated before
any field is written, and all fields are stored in a single write. Font sizes
outside the supported range are clamped.

Response:
  - 200: Preferences
  - 400: Validation: Unknown theme, font or alignment
*/
func (handler *Handler) UpdatePreferences(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	var input updatePreferencesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	current := session.Preferences.Get()

	v := &validate.Validator{}
	v.OneOf("theme", pointer.Fallback(input.Theme, current.Theme), preferences.Themes...)
	v.OneOf("font", pointer.Fallback(input.Font, current.Font), preferences.Fonts...)
	v.OneOf("textAlign", pointer.Fallback(input.TextAlign, current.TextAlign), preferences.TextAligns...)
	v.Required("columnWidth", pointer.Fallback(input.ColumnWidth, current.ColumnWidth))
	v.MaxLen("columnWidth", pointer.Fallback(input.ColumnWidth, current.ColumnWidth), maxColumnWidthLength)
	v.Custom("lineHeight", pointer.Fallback(input.LineHeight, current.LineHeight) <= 0, "Must be positive")
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	patch := preferences.Patch{
		Theme:       input.Theme,
		Font:        input.Font,
		FontSize:    input.FontSize,
		LineHeight:  input.LineHeight,
		ColumnWidth: input.ColumnWidth,
		TextAlign:   input.TextAlign,
	}
	if err := session.Preferences.Apply(patch); err != nil {
		respond.Error(writer, request, mapError(err))
		return
	}

	mutated(writer, session.Preferences.IsReady(), session.Preferences.Get())
}

// IncreaseFontSize handles POST /api/v1/preferences/font-size/increase.
func (handler *Handler) IncreaseFontSize(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	session.Preferences.IncreaseFontSize()
	mutated(writer, session.Preferences.IsReady(), session.Preferences.Get())
}

// DecreaseFontSize handles POST /api/v1/preferences/font-size/decrease.
func (handler *Handler) DecreaseFontSize(writer http.ResponseWriter, request *http.Request) {
	session, ok := handler.session(writer, request)
	if !ok {
		return
	}

	session.Preferences.DecreaseFontSize()
	mutated(writer, session.Preferences.IsReady(), session.Preferences.Get())
}

// # Helpers

// session resolves the session of the request's profile, writing the error
// response itself when that fails.
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) (*Session, bool) {
	profileID, err := requestutil.RequiredProfile(request)
	if err != nil {
		respond.Error(writer, request, err)
		return nil, false
	}

	session, err := handler.service.Session(request.Context(), profileID)
	if err != nil {
		respond.Error(writer, request, mapError(err))
		return nil, false
	}
	return session, true
}

func (handler *Handler) sessionAndNovel(writer http.ResponseWriter, request *http.Request) (*Session, string, bool) {
	novelID := requestutil.ID(request, "novelID")

	v := &validate.Validator{}
	if err := v.NovelID(FieldNovelID, novelID).Err(); err != nil {
		respond.Error(writer, request, err)
		return nil, "", false
	}

	session, ok := handler.session(writer, request)
	return session, novelID, ok
}

func (handler *Handler) sessionAndChapter(writer http.ResponseWriter, request *http.Request) (*Session, string, progress.ChapterID, bool) {
	chapterID, err := requestutil.ChapterID(request, "chapterID")
	if err != nil {
		respond.Error(writer, request, err)
		return nil, "", 0, false
	}

	session, novelID, ok := handler.sessionAndNovel(writer, request)
	return session, novelID, progress.ChapterID(chapterID), ok
}

// mutated answers 200 once the write reached the store path, or 202 when it
// is queued behind hydration.
func mutated(writer http.ResponseWriter, ready bool, payload any) {
	if ready {
		respond.OK(writer, payload)
		return
	}
	respond.Accepted(writer, payload)
}

func libraryState(session *Session, novelID string) map[string]any {
	return map[string]any{
		FieldNovelID:   novelID,
		FieldInLibrary: session.Library.Contains(novelID),
		FieldReady:     session.Library.IsReady(),
	}
}

func chapterState(session *Session, novelID string, chapterID progress.ChapterID) map[string]any {
	status := session.Progress.ChapterStatus(novelID, chapterID)
	return map[string]any{
		FieldNovelID:   novelID,
		FieldChapterID: int(chapterID),
		"isRead":       status.IsRead,
		"percentage":   status.Percentage,
		FieldReady:     session.Progress.IsReady(),
	}
}

// mapError translates domain errors into API errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return apperr.NotFound("Novel or chapter").WithCause(err)
	case errors.Is(err, progress.ErrInvalidNovel):
		return validate.RequiredError(FieldNovelID, "Must be a valid novel id")
	case errors.Is(err, progress.ErrInvalidChapter):
		return validate.RequiredError(FieldChapterID, "Must be a positive integer")
	case errors.Is(err, progress.ErrInvalidMeasurement):
		return validate.RequiredError("scrollPosition", "Must be a finite number")
	case errors.Is(err, preferences.ErrInvalidPreference):
		return apperr.ValidationError("Invalid preference value").WithCause(err)
	case errors.Is(err, ErrInvalidProfile):
		return apperr.Unauthorized("Invalid reader profile")
	case errors.Is(err, ErrClosed):
		return apperr.ServiceUnavailable("Server is shutting down")
	}
	return err
}
