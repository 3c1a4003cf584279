// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug derives ASCII identifiers from novel titles.
//
// Catalogue documents may omit novel ids; the catalogue then uses the slug of
// the title (e.g., "Échoes of Nebula" becomes "echoes-of-nebula").
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds a slug. Longer results are cut at the last hyphen that
// fits.
const MaxLength = 96

// From converts an arbitrary Unicode string into a lowercase ASCII slug.
//
// Accents are stripped after NFD decomposition. Every run of other characters
// becomes a single hyphen, and leading or trailing hyphens are dropped. The
// result is empty when s holds no ASCII letter or digit.
func From(s string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, transform.RemoveFunc(isMn)), s)
	if err != nil {
		stripped = s
	}

	var builder strings.Builder
	builder.Grow(len(stripped))

	pendingHyphen := false
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			builder.WriteRune(r)
			pendingHyphen = false
			continue
		}
		pendingHyphen = true
	}

	return truncate(builder.String())
}

func truncate(slug string) string {
	if len(slug) <= MaxLength {
		return slug
	}
	cut := slug[:MaxLength]
	if index := strings.LastIndexByte(cut, '-'); index > 0 {
		cut = cut[:index]
	}
	return cut
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
