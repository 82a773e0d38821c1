// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"fmt"
	"net/http"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Rate is the request rate in requests per second; 0 disables limiting.
	Rate float64
}

// New builds the process-wide provider for cfg.
func New(cfg Config) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var p Provider
	switch cfg.Backend {
	case "openai":
		p = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout, client)
	case "claude":
		p = NewClaude(cfg.APIKey, cfg.Model, cfg.BaseURL, client)
	case "ollama":
		p = NewOllama(cfg.Model, cfg.BaseURL, client)
	case "static":
		p = Static{}
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}

	if cfg.Rate > 0 {
		p = NewRateLimited(p, cfg.Rate, 1)
	}
	return p, nil
}
