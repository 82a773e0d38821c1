// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"
)

// Info describes the active cache for the admin API.
type Info struct {
	Backend    BackendType `json:"backend"`
	IsFallback bool        `json:"is_fallback"`
	Stats      Stats       `json:"stats"`
}

// Manager owns the cache backend and the components built on it.
type Manager struct {
	Backend     Cacher
	Responses   *ResponseCache
	Invalidator *Invalidator

	backendType BackendType
	isFallback  bool
	logger      *slog.Logger
}

// NewManager builds the response cache and invalidator over res.Cache.
func NewManager(res CacheResult, language LanguageFunc, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if res.IsFallback {
		logger.Warn("redis unavailable, using memory cache", "error", res.FallbackReason)
	}
	return &Manager{
		Backend:     res.Cache,
		Responses:   NewResponseCache(res.Cache, language, ttl, logger),
		Invalidator: NewInvalidator(res.Cache, logger),
		backendType: res.BackendType,
		isFallback:  res.IsFallback,
		logger:      logger,
	}
}

// Info returns the backend type and statistics.
func (m *Manager) Info() Info {
	info := Info{Backend: m.backendType, IsFallback: m.isFallback}
	if sp, ok := m.Backend.(StatsProvider); ok {
		info.Stats = sp.Stats()
	}
	return info
}

// ClearResponses drops every cached response and resets statistics.
func (m *Manager) ClearResponses(ctx context.Context) error {
	if err := m.Invalidator.InvalidatePrefix(ctx, KeyPrefix); err != nil {
		return err
	}
	if sp, ok := m.Backend.(StatsProvider); ok {
		sp.ResetStats()
	}
	m.logger.Info("response cache cleared")
	return nil
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.Backend.Close()
}
