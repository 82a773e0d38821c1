// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
)

// Invalidator deletes cached responses affected by entity changes.
type Invalidator struct {
	backend Cacher
	logger  *slog.Logger
}

// NewInvalidator creates an invalidator for backend.
func NewInvalidator(backend Cacher, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{backend: backend, logger: logger}
}

// InvalidateKind deletes every response whose path is listed in the
// kind's cache paths.
func (i *Invalidator) InvalidateKind(ctx context.Context, kind model.EntityKind) error {
	spec, ok := model.Spec(kind)
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	var errs []error
	for _, path := range spec.CachePaths {
		if err := i.InvalidatePrefix(ctx, ResponsePrefix(path)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidatePrefix deletes every key starting with prefix. Backends without
// prefix deletion or key scanning are flushed entirely.
func (i *Invalidator) InvalidatePrefix(ctx context.Context, prefix string) error {
	switch b := i.backend.(type) {
	case PrefixDeleter:
		if err := b.DeleteByPrefix(ctx, prefix); err != nil {
			return fmt.Errorf("invalidating %s: %w", prefix, err)
		}
	case Scanner:
		keys, err := b.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", prefix, err)
		}
		for _, k := range keys {
			if err := i.backend.Delete(ctx, k); err != nil {
				return fmt.Errorf("invalidating %s: %w", k, err)
			}
		}
	default:
		i.logger.Warn("cache backend cannot delete by prefix, clearing everything", "prefix", prefix)
		if err := i.backend.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}
	i.logger.Debug("response cache invalidated", "prefix", prefix)
	return nil
}

// OnEntityChanged is the hooks.Func registered for saves, deletes and
// completed translations.
func (i *Invalidator) OnEntityChanged(ctx context.Context, ev hooks.Event) error {
	return i.InvalidateKind(ctx, ev.Kind)
}

// Register subscribes the invalidator to every event that changes what the
// public API returns.
func (i *Invalidator) Register(r *hooks.Registry) {
	for _, ev := range []string{hooks.EntitySaved, hooks.EntityDeleted, hooks.EntityTranslated} {
		r.Register(ev, hooks.Handler{Name: "cache.invalidate", Priority: 10, Fn: i.OnEntityChanged})
	}
}
