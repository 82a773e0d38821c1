// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited bounds the request rate of the wrapped provider across all
// workers sharing it.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p with a token bucket of rps requests per second.
func NewRateLimited(p Provider, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Provider: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Ask waits for a token, then delegates.
func (r *RateLimited) Ask(ctx context.Context, systemPrompt, userMessage string, temperature float64) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Provider.Ask(ctx, systemPrompt, userMessage, temperature)
}
