// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the folio project.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/olegiv/folio-go/internal/llm"
	"github.com/olegiv/folio-go/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "folio-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// Call is one recorded provider request.
type Call struct {
	System      string
	User        string
	Temperature float64
}

// FakeProvider is a scripted llm.Provider. Respond decides the answer for
// each call; when nil the user message is echoed back.
type FakeProvider struct {
	Respond func(n int, c Call) (string, error)

	mu    sync.Mutex
	calls []Call
}

// Name implements llm.Provider.
func (p *FakeProvider) Name() string { return "fake" }

// Ask implements llm.Provider.
func (p *FakeProvider) Ask(ctx context.Context, system, user string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := Call{System: system, User: user, Temperature: temperature}

	p.mu.Lock()
	p.calls = append(p.calls, c)
	n := len(p.calls)
	respond := p.Respond
	p.mu.Unlock()

	if respond == nil {
		return user, nil
	}
	return respond(n, c)
}

// Calls returns a copy of the recorded calls.
func (p *FakeProvider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount returns the number of Ask calls so far.
func (p *FakeProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Reset forgets recorded calls.
func (p *FakeProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// EchoProvider returns every user message unchanged.
func EchoProvider() *FakeProvider {
	return &FakeProvider{}
}

// DictionaryProvider answers from dict and echoes anything it does not
// know, so a second editing pass keeps the first pass's output.
func DictionaryProvider(dict map[string]string) *FakeProvider {
	return &FakeProvider{Respond: func(_ int, c Call) (string, error) {
		if v, ok := dict[c.User]; ok {
			return v, nil
		}
		return c.User, nil
	}}
}

// TransientError returns an error the task layer treats as retryable.
func TransientError(msg string) error {
	return &llm.TransientError{Provider: "fake", StatusCode: 503, Err: errString(msg)}
}

// PermanentError returns an error the task layer does not retry.
func PermanentError(msg string) error {
	return &llm.PermanentError{Provider: "fake", StatusCode: 400, Err: errString(msg)}
}

type errString string

func (e errString) Error() string { return string(e) }
