// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package hooks

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/olegiv/folio-go/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestFireRunsHandlersInPriorityOrder(t *testing.T) {
	r := NewRegistry(testLogger())

	var order []string
	record := func(name string) Func {
		return func(context.Context, Event) error {
			order = append(order, name)
			return nil
		}
	}

	r.Register(EntitySaved, Handler{Name: "late", Priority: 10, Fn: record("late")})
	r.Register(EntitySaved, Handler{Name: "early", Priority: -5, Fn: record("early")})
	r.RegisterFunc(EntitySaved, "default", record("default"))

	r.Fire(context.Background(), Event{Type: EntitySaved, Kind: model.KindPlace, EntityID: 1})

	want := []string{"early", "default", "late"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestFireContinuesAfterError(t *testing.T) {
	r := NewRegistry(testLogger())

	called := false
	r.RegisterFunc(EntityDeleted, "failing", func(context.Context, Event) error {
		return errors.New("boom")
	})
	r.RegisterFunc(EntityDeleted, "next", func(context.Context, Event) error {
		called = true
		return nil
	})

	r.Fire(context.Background(), Event{Type: EntityDeleted})
	if !called {
		t.Error("handler after a failing one should still run")
	}
}

func TestFireOnlyMatchingType(t *testing.T) {
	r := NewRegistry(testLogger())

	calls := 0
	r.RegisterFunc(EntitySaved, "saved", func(context.Context, Event) error {
		calls++
		return nil
	})

	r.Fire(context.Background(), Event{Type: EntityTranslated})
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if r.HandlerCount(EntitySaved) != 1 {
		t.Errorf("HandlerCount = %d, want 1", r.HandlerCount(EntitySaved))
	}
}

func TestFireDetachesFromCancellation(t *testing.T) {
	r := NewRegistry(testLogger())

	var seen error
	r.RegisterFunc(EntitySaved, "check", func(ctx context.Context, _ Event) error {
		seen = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Fire(ctx, Event{Type: EntitySaved})
	if seen != nil {
		t.Errorf("handler saw ctx error %v, want nil", seen)
	}
}
