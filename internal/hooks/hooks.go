// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hooks dispatches post-commit entity events to registered
// handlers such as the translation trigger and the cache invalidator.
package hooks

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/olegiv/folio-go/internal/model"
)

// Event types.
const (
	// EntitySaved fires after an editor create or update commits.
	EntitySaved = "entity.saved"
	// EntityDeleted fires after an entity and its translations are removed.
	EntityDeleted = "entity.deleted"
	// EntityTranslated fires after the translation service wrote fields.
	EntityTranslated = "entity.translated"
)

// Event describes a committed change to one entity.
type Event struct {
	Type     string
	Kind     model.EntityKind
	EntityID int64
	// Language is set for EntityTranslated.
	Language string
	// ChangedFields lists default-language fields and attributes whose value changed.
	ChangedFields []string
	Created       bool
	// Force requests retranslation even where translations exist.
	Force bool
}

// Func handles an event. Errors are logged and never abort the caller.
type Func func(ctx context.Context, ev Event) error

// Handler wraps a Func with metadata.
type Handler struct {
	Name     string // Name of the handler for debugging
	Priority int    // Lower priority runs first (default: 0)
	Fn       Func
}

// Registry manages hook registration and execution.
type Registry struct {
	hooks  map[string][]Handler
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		hooks:  make(map[string][]Handler),
		logger: logger,
	}
}

// Register adds a handler for the given event type.
func (r *Registry) Register(eventType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := append(slices.Clone(r.hooks[eventType]), handler)
	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].Priority < handlers[j].Priority
	})
	r.hooks[eventType] = handlers

	r.logger.Debug("hook registered",
		"event", eventType,
		"handler", handler.Name,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with default priority.
func (r *Registry) RegisterFunc(eventType, name string, fn Func) {
	r.Register(eventType, Handler{Name: name, Fn: fn})
}

// Fire runs every handler for ev.Type in priority order. A failing handler
// is logged and the remaining handlers still run, because the change that
// triggered the event has already been committed. Handlers run detached
// from ctx cancellation.
func (r *Registry) Fire(ctx context.Context, ev Event) {
	ctx = context.WithoutCancel(ctx)

	r.mu.RLock()
	handlers := r.hooks[ev.Type]
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Fn(ctx, ev); err != nil {
			r.logger.Error("hook handler failed",
				"event", ev.Type,
				"handler", h.Name,
				"kind", ev.Kind,
				"entity_id", ev.EntityID,
				"error", err,
			)
		}
	}
}

// HandlerCount returns the number of handlers registered for an event type.
func (r *Registry) HandlerCount(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[eventType])
}
