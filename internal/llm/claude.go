// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultClaudeBaseURL = "https://api.anthropic.com/v1"
	claudeAPIVersion     = "2023-06-01"
	claudeMaxTokens      = 8192
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClaude creates an Anthropic provider.
func NewClaude(apiKey, model, baseURL string, client *http.Client) *Claude {
	if baseURL == "" {
		baseURL = defaultClaudeBaseURL
	}
	return &Claude{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// Name implements Provider.
func (p *Claude) Name() string { return "claude" }

// Ask implements Provider.
func (p *Claude) Ask(ctx context.Context, systemPrompt, userMessage string, temperature float64) (string, error) {
	body := map[string]any{
		"model":       p.model,
		"system":      systemPrompt,
		"max_tokens":  claudeMaxTokens,
		"temperature": temperature,
		"messages": []map[string]string{
			{"role": "user", "content": userMessage},
		},
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": claudeAPIVersion,
	}
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/messages", headers, body, &result); err != nil {
		return "", err
	}

	for _, c := range result.Content {
		if c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", nil
}
