// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripAll = bluemonday.StrictPolicy()

// IsEmptyText reports whether s carries no visible text once HTML tags are
// removed, entities decoded and whitespace (including non-breaking spaces)
// trimmed. "<p>&nbsp;</p>" and "   " are empty; "<p>x</p>" is not.
func IsEmptyText(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	text := html.UnescapeString(stripAll.Sanitize(s))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text) == ""
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
