// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides text helpers shared by the content and translation
// layers: slug derivation and emptiness checks on HTML-bearing fields.
package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonSlugUnicode matches characters that never appear in a unicode slug
	nonSlugUnicode = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]+`)
	// nonSlugASCII matches characters that never appear in an ASCII slug
	nonSlugASCII = regexp.MustCompile(`[^a-z0-9_\s-]+`)
	// separators matches runs of hyphens and whitespace
	separators = regexp.MustCompile(`[-\s]+`)
)

// CanonicalSlugify converts s to a URL slug.
//
// Latin-script letters are always transliterated to ASCII (so "ł" becomes
// "l"). Letters of other scripts are kept as-is when allowUnicode is true
// and transliterated otherwise. The result is lowercase, words are joined
// by single hyphens, and leading or trailing hyphens and underscores are
// stripped.
func CanonicalSlugify(s string, allowUnicode bool) string {
	var b strings.Builder
	for _, r := range norm.NFKC.String(s) {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case unicode.Is(unicode.Latin, r) || !allowUnicode:
			b.WriteString(unidecode.Unidecode(string(r)))
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	result := strings.ToLower(b.String())
	if allowUnicode {
		result = nonSlugUnicode.ReplaceAllString(result, "")
	} else {
		result = nonSlugASCII.ReplaceAllString(result, "")
	}
	result = separators.ReplaceAllString(result, "-")

	return strings.Trim(result, "-_")
}
