// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// ContextKeyLanguage holds the resolved language code of a request.
const ContextKeyLanguage ContextKey = "language"

// LanguageNegotiator picks the response language of a request among the
// configured languages.
type LanguageNegotiator struct {
	codes       []string
	defaultCode string
	matcher     language.Matcher
}

// NewLanguageNegotiator creates a negotiator. defaultCode is used when
// nothing in the request matches.
func NewLanguageNegotiator(defaultCode string, codes []string) *LanguageNegotiator {
	// The default goes first so the matcher falls back to it.
	ordered := []string{defaultCode}
	for _, c := range codes {
		if c != defaultCode {
			ordered = append(ordered, c)
		}
	}
	tags := make([]language.Tag, 0, len(ordered))
	for _, c := range ordered {
		tags = append(tags, language.Make(c))
	}
	return &LanguageNegotiator{
		codes:       ordered,
		defaultCode: defaultCode,
		matcher:     language.NewMatcher(tags),
	}
}

// Resolve returns the language of r: a supported ?lang= value, else the
// best Accept-Language match, else the default.
func (n *LanguageNegotiator) Resolve(r *http.Request) string {
	if code, ok := r.Context().Value(ContextKeyLanguage).(string); ok {
		return code
	}
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang"))); q != "" {
		for _, c := range n.codes {
			if strings.ToLower(c) == q {
				return c
			}
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return n.match(accept)
	}
	return n.defaultCode
}

func (n *LanguageNegotiator) match(accept string) string {
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return n.defaultCode
	}
	_, index, confidence := n.matcher.Match(prefs...)
	if confidence == language.No {
		return n.defaultCode
	}
	return n.codes[index]
}

// Middleware stores the resolved language in the request context and
// announces it in Content-Language.
func (n *LanguageNegotiator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := n.Resolve(r)
		w.Header().Set("Content-Language", code)
		w.Header().Add("Vary", "Accept-Language")
		ctx := context.WithValue(r.Context(), ContextKeyLanguage, code)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLanguage returns the language stored by the middleware, or "".
func GetLanguage(r *http.Request) string {
	code, _ := r.Context().Value(ContextKeyLanguage).(string)
	return code
}
