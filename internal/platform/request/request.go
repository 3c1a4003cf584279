// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/storyweaver/internal/platform/apperr"
	"github.com/taibuivan/storyweaver/internal/platform/ctxutil"
	"github.com/taibuivan/storyweaver/internal/platform/validate"
	"github.com/taibuivan/storyweaver/pkg/convert"
)

// maxBodyBytes bounds request bodies; reader payloads are a few numbers.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (novel id) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
ChapterID parses a named URL parameter as a 1-based chapter id.

Returns:
  - int: The chapter id
  - error: A VALIDATION_ERROR if the parameter is not a positive integer
*/
func ChapterID(request *http.Request, name string) (int, error) {
	id := convert.ToIntD(chi.URLParam(request, name), 0)
	if id < 1 {
		return 0, validate.RequiredError(name, "Must be a positive integer")
	}
	return id, nil
}

/*
RequiredProfile returns the reader profile resolved by the authentication
middleware.

Returns:
  - string: Profile id
  - error: apperr.Unauthorized if no profile could be resolved
*/
func RequiredProfile(request *http.Request) (string, error) {
	profileID := ctxutil.GetProfile(request.Context())
	if profileID == "" {
		return "", apperr.Unauthorized("A reader profile is required")
	}
	return profileID, nil
}
