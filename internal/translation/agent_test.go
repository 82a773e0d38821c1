// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/llm"
	"github.com/olegiv/folio-go/internal/testutil"
)

func TestTranslatePlainTwoPass(t *testing.T) {
	p := &testutil.FakeProvider{Respond: func(n int, c testutil.Call) (string, error) {
		if n == 1 {
			return "  Mgławica w Orionie  ", nil
		}
		return "Mgławica Oriona", nil
	}}
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslatePlain(context.Background(), "Orion Nebula", "pl")
	require.NoError(t, err)
	assert.Equal(t, "Mgławica Oriona", got)

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Orion Nebula", calls[0].User)
	assert.Equal(t, 0.0, calls[0].Temperature)
	assert.Contains(t, calls[0].System, "Polish")
	assert.Contains(t, calls[0].System, "English")
	assert.Equal(t, "Mgławica w Orionie", calls[1].User, "edit pass receives trimmed literal output")
	assert.Equal(t, 0.2, calls[1].Temperature)
}

func TestTranslatePlainEmptyResponse(t *testing.T) {
	p := &testutil.FakeProvider{Respond: func(n int, _ testutil.Call) (string, error) {
		if n == 2 {
			return "   ", nil
		}
		return "x", nil
	}}
	a := NewAgent(p, "en", testutil.TestLogger())

	_, err := a.TranslatePlain(context.Background(), "text", "pl")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrEmptyResponse))
	assert.False(t, llm.IsTransient(err))
}

func TestTranslatePlainProviderErrorKeepsClassification(t *testing.T) {
	p := &testutil.FakeProvider{Respond: func(int, testutil.Call) (string, error) {
		return "", testutil.TransientError("overloaded")
	}}
	a := NewAgent(p, "en", testutil.TestLogger())

	_, err := a.TranslatePlain(context.Background(), "text", "pl")
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 1, p.CallCount(), "edit pass must not run after a failed literal pass")
}

func TestTranslateHTMLPreservesAnchors(t *testing.T) {
	p := testutil.EchoProvider()
	a := NewAgent(p, "en", testutil.TestLogger())

	input := `<p>See <a href="/m42" class="x">M42</a> and <A HREF="/m31">the
Andromeda galaxy</A>.</p>`

	got, err := a.TranslateHTML(context.Background(), input, "pl")
	require.NoError(t, err)
	assert.Equal(t, input, got)

	for _, c := range p.Calls() {
		assert.NotContains(t, c.User, "<a ")
		assert.NotContains(t, strings.ToLower(c.User), "</a>")
		assert.Contains(t, c.User, "[[L0]]")
		assert.Contains(t, c.User, "[[L1]]")
	}
}

func TestTranslateHTMLMissingPlaceholder(t *testing.T) {
	p := &testutil.FakeProvider{Respond: func(_ int, c testutil.Call) (string, error) {
		return strings.ReplaceAll(c.User, "[[L1]]", ""), nil
	}}
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslateHTML(context.Background(), `<a href="/a">A</a> and <a href="/b">B</a>`, "pl")
	require.NoError(t, err)
	assert.Equal(t, `<a href="/a">A</a> and`, got)
}

func TestTranslateHTMLRepeatedPlaceholder(t *testing.T) {
	p := &testutil.FakeProvider{Respond: func(n int, c testutil.Call) (string, error) {
		if n == 1 {
			return c.User + " [[L0]]", nil
		}
		return c.User, nil
	}}
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslateHTML(context.Background(), `<a href="/a">A</a> tutaj`, "pl")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(got, `<a href="/a">A</a>`))
	assert.NotContains(t, got, "[[L0]]")
}

func TestTranslateHTMLWithoutAnchors(t *testing.T) {
	p := testutil.EchoProvider()
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslateHTML(context.Background(), "<p>Clear skies</p>", "pl")
	require.NoError(t, err)
	assert.Equal(t, "<p>Clear skies</p>", got)
	assert.Equal(t, 2, p.CallCount())
}

func TestTranslatePlaceSinglePassWithCountry(t *testing.T) {
	p := testutil.DictionaryProvider(map[string]string{"Hawaii": "Hawaje"})
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslatePlace(context.Background(), "Hawaii", "pl", "United States")
	require.NoError(t, err)
	assert.Equal(t, "Hawaje", got)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "United States")
}

func TestTranslateTagSinglePass(t *testing.T) {
	p := testutil.DictionaryProvider(map[string]string{"Nebula": "Mgławica"})
	a := NewAgent(p, "en", testutil.TestLogger())

	got, err := a.TranslateTag(context.Background(), "Nebula", "pl")
	require.NoError(t, err)
	assert.Equal(t, "Mgławica", got)
	assert.Equal(t, 1, p.CallCount())
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Polish", languageName("pl"))
	assert.Equal(t, "German", languageName("de"))
	assert.Equal(t, "not a tag!", languageName("not a tag!"))
}
