// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy describes how transient failures are rescheduled.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryPolicy returns 3 retries starting at one minute, doubling,
// capped at ten minutes, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Minute,
		MaxDelay:     10 * time.Minute,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay returns the wait before retry number retry+1.
// Retry 0 = InitialDelay, retry 1 = InitialDelay*Multiplier, and so on.
// With Jitter the result is drawn uniformly from [0, delay].
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	backoff := time.Duration(float64(p.InitialDelay) * math.Pow(mult, float64(retry)))
	if p.MaxDelay > 0 && (backoff > p.MaxDelay || backoff < 0) {
		backoff = p.MaxDelay
	}
	if p.Jitter && backoff > 0 {
		backoff = rand.N(backoff + 1)
	}
	return backoff
}

// CanRetry reports whether a message already retried retry times may be
// retried again.
func (p RetryPolicy) CanRetry(retry int) bool {
	return retry < p.MaxRetries
}
