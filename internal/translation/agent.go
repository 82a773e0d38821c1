// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/olegiv/folio-go/internal/llm"
)

// anchorPattern matches a whole <a ...>...</a> element, case-insensitive,
// across newlines.
var anchorPattern = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a>`)

func placeholder(i int) string {
	return fmt.Sprintf("[[L%d]]", i)
}

// Agent holds the four translation primitives. It is stateless apart from
// the shared provider and safe for concurrent use.
type Agent struct {
	provider       llm.Provider
	sourceLanguage string
	logger         *slog.Logger
}

// NewAgent creates an agent translating out of sourceLanguage.
func NewAgent(provider llm.Provider, sourceLanguage string, logger *slog.Logger) *Agent {
	return &Agent{
		provider:       provider,
		sourceLanguage: sourceLanguage,
		logger:         logger,
	}
}

func (a *Agent) ask(ctx context.Context, system, user string, temperature float64) (string, error) {
	out, err := a.provider.Ask(ctx, system, user, temperature)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &llm.PermanentError{Provider: a.provider.Name(), Err: llm.ErrEmptyResponse}
	}
	return out, nil
}

// TranslatePlain runs a literal pass followed by a native-editing pass.
func (a *Agent) TranslatePlain(ctx context.Context, text, lang string) (string, error) {
	source, target := languageName(a.sourceLanguage), languageName(lang)

	literal, err := a.ask(ctx, literalPrompt(source, target), text, literalTemperature)
	if err != nil {
		return "", fmt.Errorf("literal pass: %w", err)
	}
	edited, err := a.ask(ctx, editPrompt(target), literal, editTemperature)
	if err != nil {
		return "", fmt.Errorf("edit pass: %w", err)
	}
	return edited, nil
}

// TranslateHTML protects anchor elements behind [[L<i>]] placeholders,
// translates the rest as plain text and puts the anchors back in order.
// A placeholder the model dropped leaves its anchor out; the rest of the
// text is still used.
func (a *Agent) TranslateHTML(ctx context.Context, text, lang string) (string, error) {
	anchors := anchorPattern.FindAllString(text, -1)
	if len(anchors) == 0 {
		return a.TranslatePlain(ctx, text, lang)
	}

	i := 0
	masked := anchorPattern.ReplaceAllStringFunc(text, func(string) string {
		p := placeholder(i)
		i++
		return p
	})

	out, err := a.TranslatePlain(ctx, masked, lang)
	if err != nil {
		return "", err
	}

	for i, anchor := range anchors {
		p := placeholder(i)
		if !strings.Contains(out, p) {
			a.logger.Debug("anchor placeholder missing from translation", "placeholder", p, "language", lang)
			continue
		}
		out = strings.Replace(out, p, anchor, 1)
		// Repeated placeholders would duplicate the link.
		out = strings.ReplaceAll(out, p, "")
	}
	return out, nil
}

// TranslatePlace translates a geographic name in one pass. country is a
// disambiguation hint and may be empty.
func (a *Agent) TranslatePlace(ctx context.Context, name, lang, country string) (string, error) {
	return a.ask(ctx, placePrompt(languageName(a.sourceLanguage), languageName(lang), country), name, singleTemperature)
}

// TranslateTag translates a short label in one pass.
func (a *Agent) TranslateTag(ctx context.Context, name, lang string) (string, error) {
	return a.ask(ctx, tagPrompt(languageName(a.sourceLanguage), languageName(lang)), name, singleTemperature)
}
