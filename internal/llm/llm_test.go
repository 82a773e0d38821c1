// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIAsk(t *testing.T) {
	var body map[string]any
	srv := openAIServer(t, http.StatusOK, "Hawaje", &body)

	p := NewOpenAI("sk-test", "gpt-4o-mini", srv.URL+"/v1", 5*time.Second, srv.Client())
	got, err := p.Ask(context.Background(), "system", "Hawaii", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "Hawaje", got)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.InDelta(t, 1.0, body["top_p"], 1e-9)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := openAIServer(t, tt.status, "", nil)
			p := NewOpenAI("sk-test", "m", srv.URL+"/v1/", time.Second, srv.Client())

			_, err := p.Ask(context.Background(), "s", "u", 0)
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestClaudeAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "translate", body["system"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Mgławica"}]}`))
	}))
	defer srv.Close()

	p := NewClaude("key", "claude-model", srv.URL+"/v1", srv.Client())
	got, err := p.Ask(context.Background(), "translate", "Nebula", 0)
	require.NoError(t, err)
	assert.Equal(t, "Mgławica", got)
}

func TestOllamaAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, false, body["stream"])
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Hawaje"}}`))
	}))
	defer srv.Close()

	p := NewOllama("llama3", srv.URL, srv.Client())
	got, err := p.Ask(context.Background(), "s", "Hawaii", 0)
	require.NoError(t, err)
	assert.Equal(t, "Hawaje", got)
}

func TestHTTPErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	p := NewOllama("m", srv.URL, srv.Client())

	_, err := p.Ask(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	var te *TransientError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)

	srv.Close()
	_, err = p.Ask(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.True(t, IsTransient(err), "connection refused should be transient")
}

func TestTruncateBodyKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("ł", 400)
	got := truncateBody(body)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 303, utf8.RuneCountInString(got))

	assert.Equal(t, "short", truncateBody("short"))
}

func TestMalformedBodyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewOllama("m", srv.URL, srv.Client()).Ask(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	var pe *PermanentError
	assert.True(t, errors.As(err, &pe))
}

func TestRateLimitedHonoursContext(t *testing.T) {
	p := NewRateLimited(Static{}, 0.001, 1)

	got, err := p.Ask(context.Background(), "s", "first", 0)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Ask(ctx, "s", "second", 0)
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	for _, backend := range []string{"openai", "claude", "ollama", "static"} {
		p, err := New(Config{Backend: backend, APIKey: "k", Model: "m", Timeout: time.Second, Rate: 5})
		require.NoError(t, err, backend)
		assert.Equal(t, backend, p.Name())
	}

	_, err := New(Config{Backend: "gemini"})
	require.Error(t, err)
}
