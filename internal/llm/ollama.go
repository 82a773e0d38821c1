// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"context"
	"net/http"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// Ollama talks to a local Ollama server.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewOllama creates an Ollama provider.
func NewOllama(model, baseURL string, client *http.Client) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &Ollama{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
	}
}

// Name implements Provider.
func (p *Ollama) Name() string { return "ollama" }

// Ask implements Provider.
func (p *Ollama) Ask(ctx context.Context, systemPrompt, userMessage string, temperature float64) (string, error) {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
			"top_p":       1,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/api/chat", nil, body, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}
