// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"
)

// getRedisURL returns the Redis URL for testing, or empty string if not configured.
func getRedisURL() string {
	return os.Getenv("FOLIO_TEST_REDIS_URL")
}

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	t.Helper()
	url := getRedisURL()
	if url == "" {
		t.Skip("Skipping Redis tests: FOLIO_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	url := skipIfNoRedis(t)
	cache, err := NewRedisCacheFromURL(url, "folio-test:", 0)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	_ = cache.Clear(context.Background())
	return cache
}

func TestRedisCache_Basic(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cache.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v; want v, nil", got, err)
	}
	if has, _ := cache.Has(ctx, "k"); !has {
		t.Error("expected key to exist")
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 100*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("expected key to expire, got %v", err)
	}
}

func TestRedisCache_DeleteByPrefixAndKeys(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "api_cache:/v1/image:en:a", []byte("1"), 0)
	_ = cache.Set(ctx, "api_cache:/v1/image/3:en:b", []byte("2"), 0)
	_ = cache.Set(ctx, "api_cache:/v1/tags:en:c", []byte("3"), 0)

	keys, err := cache.Keys(ctx, "api_cache:/v1/image")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"api_cache:/v1/image/3:en:b", "api_cache:/v1/image:en:a"}) {
		t.Errorf("Keys = %v", keys)
	}

	if err := cache.DeleteByPrefix(ctx, "api_cache:/v1/image"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if has, _ := cache.Has(ctx, "api_cache:/v1/image:en:a"); has {
		t.Error("expected image entry to be deleted")
	}
	if has, _ := cache.Has(ctx, "api_cache:/v1/tags:en:c"); !has {
		t.Error("expected tags entry to survive")
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache := newTestRedisCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), 0)
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "missing")

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 || stats.Items != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRedisCache_Close(t *testing.T) {
	url := skipIfNoRedis(t)
	cache, err := NewRedisCacheFromURL(url, "folio-test:", 0)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := cache.Get(context.Background(), "k"); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close should succeed, got %v", err)
	}
}

func TestRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCacheFromURL("invalid-url", "test:", time.Minute); err == nil {
		t.Error("expected error with invalid URL, got nil")
	}
	if _, err := NewRedisCacheFromURL("", "test:", time.Minute); err == nil {
		t.Error("expected error with empty URL, got nil")
	}
}

func TestEscapePattern(t *testing.T) {
	if got := escapePattern(`a*b?[c]\`); got != `a\*b\?\[c\]\\` {
		t.Errorf("escapePattern = %q", got)
	}
}
