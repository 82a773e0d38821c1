// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testPlace struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

func TestTypedCache_BasicOperations(t *testing.T) {
	mem := newTestMemoryCache(time.Hour)
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[testPlace](mem, 0)
	ctx := context.Background()

	if err := tc.Set(ctx, "place:1", &testPlace{ID: 1, Name: "Hawaje", Country: "US"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := tc.Get(ctx, "place:1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "Hawaje" || got.Country != "US" {
		t.Errorf("Get = %+v", got)
	}

	if err := tc.Delete(ctx, "place:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := tc.Get(ctx, "place:1"); ok {
		t.Error("expected miss after delete")
	}
}

func TestTypedCache_LookupDistinguishesMissFromDecode(t *testing.T) {
	mem := newTestMemoryCache(time.Hour)
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[testPlace](mem, 0)
	ctx := context.Background()

	if _, err := tc.Lookup(ctx, "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	_ = mem.Set(ctx, "garbage", []byte("not json"), 0)
	if _, err := tc.Lookup(ctx, "garbage"); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	mem := newTestMemoryCache(time.Hour)
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[testPlace](mem, 0)
	ctx := context.Background()

	calls := 0
	fn := func() (*testPlace, error) {
		calls++
		return &testPlace{ID: 2, Name: "Islandia"}, nil
	}

	for range 2 {
		got, err := tc.GetOrSet(ctx, "place:2", fn)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if got.Name != "Islandia" {
			t.Errorf("GetOrSet = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls)
	}
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	mem := newTestMemoryCache(time.Hour)
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[testPlace](mem, 0)

	wantErr := errors.New("db down")
	_, err := tc.GetOrSet(context.Background(), "place:3", func() (*testPlace, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected loader error, got %v", err)
	}
	if has, _ := mem.Has(context.Background(), "place:3"); has {
		t.Error("failed loads must not be cached")
	}
}
