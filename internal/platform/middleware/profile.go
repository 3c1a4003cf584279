// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/storyweaver/internal/platform/apperr"
	"github.com/taibuivan/storyweaver/internal/platform/constants"
	"github.com/taibuivan/storyweaver/internal/platform/ctxutil"
	"github.com/taibuivan/storyweaver/internal/platform/respond"
	"github.com/taibuivan/storyweaver/internal/platform/sec"
)

// TokenVerifier verifies profile tokens.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*sec.ProfileClaims, error)
}

type profileHolderKey struct{}

// profileHolder lets StructuredLogger see the profile resolved further down
// the chain.
type profileHolder struct {
	profileID string
}

/*
ResolveProfile selects the reader profile of a request.

Flow:
 1. A bearer token, when present, must verify; its subject is the profile.
 2. Without a token the default profile is used, if configured.
 3. Otherwise the request proceeds without a profile and handlers that need
    one answer 401.

Parameters:
  - verifier: nil disables tokens; any Authorization header is then rejected
  - defaultProfile: profile of anonymous requests, "" for none
*/
func ResolveProfile(verifier TokenVerifier, defaultProfile string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			profileID := defaultProfile

			if header := request.Header.Get(constants.HeaderAuthorization); header != "" {
				scheme, token, found := strings.Cut(header, " ")
				if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
					respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
					return
				}
				if verifier == nil {
					respond.Error(writer, request, apperr.Unauthorized("Profile tokens are not enabled"))
					return
				}

				claims, err := verifier.VerifyToken(token)
				if err != nil {
					respond.Error(writer, request, apperr.Unauthorized("Invalid or expired profile token").WithCause(err))
					return
				}
				profileID = claims.ProfileID()
			}

			if profileID == "" {
				next.ServeHTTP(writer, request)
				return
			}

			if holder, ok := request.Context().Value(profileHolderKey{}).(*profileHolder); ok {
				holder.profileID = profileID
			}

			ctx := ctxutil.WithProfile(request.Context(), profileID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
