// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package llm wraps chat-completion backends behind a single Ask call.
// Providers never retry internally; failures are classified as transient
// or permanent so the task layer can decide.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/olegiv/folio-go/internal/util"
)

// Provider sends one system prompt and one user message and returns the
// first completion's text. Implementations are safe for concurrent use.
type Provider interface {
	Ask(ctx context.Context, systemPrompt, userMessage string, temperature float64) (string, error)
	Name() string
}

// ErrEmptyResponse is returned when the backend answered without usable text.
var ErrEmptyResponse = errors.New("llm: empty response")

// TransientError wraps a failure worth retrying later: network errors,
// timeouts, rate limiting and server errors.
type TransientError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure a retry cannot fix: bad requests, auth
// failures, malformed or empty responses.
type PermanentError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: permanent error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: permanent error: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err, or any error it wraps, is transient.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code == http.StatusTooEarly:
		return true
	case code >= 500:
		return true
	}
	return false
}

// statusError classifies a non-2xx response.
func statusError(provider string, code int, body string) error {
	err := fmt.Errorf("api error: %s", truncateBody(body))
	if transientStatus(code) {
		return &TransientError{Provider: provider, StatusCode: code, Err: err}
	}
	return &PermanentError{Provider: provider, StatusCode: code, Err: err}
}

// transportError classifies an error raised before a response arrived:
// every network failure is transient, caller cancellation is returned as-is.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Provider: provider, Err: err}
}

func truncateBody(s string) string {
	const limit = 300
	if t := util.Truncate(s, limit); t != s {
		return t + "..."
	}
	return s
}
