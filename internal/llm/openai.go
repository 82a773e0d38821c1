// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

// OpenAI talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, OpenRouter) through the official SDK.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI-compatible provider. SDK retries are
// disabled; retrying is the task queue's job.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration, httpClient *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name implements Provider.
func (p *OpenAI) Name() string { return "openai" }

// Ask implements Provider.
func (p *OpenAI) Ask(ctx context.Context, systemPrompt, userMessage string, temperature float64) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(1),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", statusError(p.Name(), apiErr.StatusCode, apiErr.Error())
		}
		return "", transportError(p.Name(), err)
	}

	if len(completion.Choices) == 0 {
		return "", &PermanentError{Provider: p.Name(), Err: errors.New("no choices returned")}
	}
	return completion.Choices[0].Message.Content, nil
}
