// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/platform/ctxutil"
	"github.com/taibuivan/storyweaver/internal/platform/middleware"
	"github.com/taibuivan/storyweaver/internal/platform/sec"
)

type stubConfig struct {
	development bool
	origins     []string
}

func (c stubConfig) IsDevelopment() bool      { return c.development }
func (c stubConfig) AllowedOrigins() []string { return c.origins }

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestRequestID_GeneratesAndPropagates verifies both generated and client IDs.
*/
func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	// 1. Generated
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	// 2. Client supplied
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "abc")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "abc", seen)
}

/*
TestResolveProfile covers token, default and rejected requests.
*/
func TestResolveProfile(t *testing.T) {
	tokens, err := sec.NewTokenService("secret", "storyweaver.app")
	require.NoError(t, err)
	valid, err := tokens.GenerateProfileToken("reader-7", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		verifier       middleware.TokenVerifier
		defaultProfile string
		header         string
		wantStatus     int
		wantProfile    string
	}{
		{"default_profile", tokens, "local", "", http.StatusOK, "local"},
		{"token_wins", tokens, "local", "Bearer " + valid, http.StatusOK, "reader-7"},
		{"no_profile", tokens, "", "", http.StatusOK, ""},
		{"bad_scheme", tokens, "local", "Basic abc", http.StatusUnauthorized, ""},
		{"bad_token", tokens, "local", "Bearer nope", http.StatusUnauthorized, ""},
		{"tokens_disabled", nil, "local", "Bearer " + valid, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := middleware.ResolveProfile(tt.verifier, tt.defaultProfile)(
				http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
					seen = ctxutil.GetProfile(request.Context())
				}),
			)

			request := httptest.NewRequest(http.MethodGet, "/api/v1/library", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantProfile, seen)
		})
	}
}

/*
TestRateLimit_RejectsBurstOverflow verifies the token bucket per client IP.
*/
func TestRateLimit_RejectsBurstOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimit(ctx, 1, 2)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.RemoteAddr = "10.0.0.1:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "10.0.0.2:1234"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestCORS_Origins verifies the allow list outside development.
*/
func TestCORS_Origins(t *testing.T) {
	handler := middleware.CORS(stubConfig{origins: []string{"https://reader.example"}})(okHandler())

	// 1. Allowed origin
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Origin", "https://reader.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "https://reader.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	// 2. Foreign origin
	request = httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))

	// 3. Pre-flight
	request = httptest.NewRequest(http.MethodOptions, "/", nil)
	request.Header.Set("Origin", "https://reader.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestPanicRecovery returns a 500 envelope instead of crashing.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.JSONEq(t, `{"code":"INTERNAL_ERROR","error":"An unexpected error occurred"}`, recorder.Body.String())
}
