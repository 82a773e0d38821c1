// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package trigger decides, after an entity is saved, which languages need a
// translation task and enqueues them.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/tasks"
	"github.com/olegiv/folio-go/internal/util"
)

// TranslationReader loads translation rows.
type TranslationReader interface {
	GetTranslation(ctx context.Context, kind model.EntityKind, id int64, lang string) (model.Translation, error)
}

// Enqueuer submits translation tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, req tasks.EnqueueRequest) (string, error)
}

// Config controls the trigger.
type Config struct {
	DefaultLanguage string
	Languages       []string
	// AlwaysEnqueue skips the needs-translation check and enqueues every
	// target language, leaving idempotency to the translation service.
	AlwaysEnqueue bool
}

// Request describes a saved entity.
type Request struct {
	Kind          model.EntityKind
	EntityID      int64
	ChangedFields []string
	Created       bool
	Force         bool
}

// Decision is the outcome for one target language.
type Decision struct {
	Language string
	Enqueue  bool
	Force    bool
	TaskID   string
	Err      error
}

// Trigger turns entity saves into translation tasks.
type Trigger struct {
	reader TranslationReader
	queue  Enqueuer
	cfg    Config
	logger *slog.Logger
}

// New creates a trigger.
func New(reader TranslationReader, queue Enqueuer, cfg Config, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{reader: reader, queue: queue, cfg: cfg, logger: logger}
}

// OnEntitySaved is the hooks.Func registered for hooks.EntitySaved.
// Failures are logged and never reported back to the saving request.
func (t *Trigger) OnEntitySaved(ctx context.Context, ev hooks.Event) error {
	// The save is committed; evaluate even if the request was canceled.
	ctx = context.WithoutCancel(ctx)
	decisions, err := t.Run(ctx, Request{
		Kind:          ev.Kind,
		EntityID:      ev.EntityID,
		ChangedFields: ev.ChangedFields,
		Created:       ev.Created,
		Force:         ev.Force,
	})
	if err != nil {
		t.logger.Error("translation trigger failed",
			"kind", ev.Kind, "entity_id", ev.EntityID, "error", err)
		return nil
	}
	for _, d := range decisions {
		if d.Err != nil {
			t.logger.Error("failed to enqueue translation",
				"kind", ev.Kind, "entity_id", ev.EntityID, "language", d.Language, "error", d.Err)
		}
	}
	return nil
}

// Run evaluates every non-default language and enqueues the ones that need
// work. An error is returned only when the source row cannot be read;
// enqueue failures are reported per language.
func (t *Trigger) Run(ctx context.Context, req Request) ([]Decision, error) {
	spec, ok := model.Spec(req.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", req.Kind)
	}

	source, err := t.load(ctx, req.Kind, req.EntityID, t.cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if !hasSource(spec, source) {
		t.logger.Debug("no translatable source, skipping", "kind", req.Kind, "entity_id", req.EntityID)
		return nil, nil
	}

	force := req.Force || (spec.ForceOnSave && !req.Created && touchesTrigger(spec, req.ChangedFields))

	var decisions []Decision
	for _, lang := range t.cfg.Languages {
		if lang == t.cfg.DefaultLanguage {
			continue
		}
		d := Decision{Language: lang, Force: force}

		if force || t.cfg.AlwaysEnqueue {
			d.Enqueue = true
		} else {
			target, err := t.load(ctx, req.Kind, req.EntityID, lang)
			if err != nil {
				d.Err = err
				decisions = append(decisions, d)
				continue
			}
			d.Enqueue = needsTranslation(spec, source, target)
		}

		if d.Enqueue {
			d.TaskID, d.Err = t.queue.Enqueue(ctx, tasks.EnqueueRequest{
				Kind:     req.Kind,
				EntityID: req.EntityID,
				Language: lang,
				Method:   spec.Method,
				Force:    force,
			})
		}
		decisions = append(decisions, d)
	}

	t.logger.Debug("translation trigger evaluated",
		"kind", req.Kind, "entity_id", req.EntityID, "force", force, "enqueued", countEnqueued(decisions))
	return decisions, nil
}

// load returns a translation row; a missing row is nil fields, not an error.
func (t *Trigger) load(ctx context.Context, kind model.EntityKind, id int64, lang string) (*model.Translation, error) {
	tr, err := t.reader.GetTranslation(ctx, kind, id, lang)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s %d translation %s: %w", kind, id, lang, err)
	}
	return &tr, nil
}

// needsTranslation reports whether a target row is missing or lacks a
// usable value for a trigger field whose source is non-empty.
func needsTranslation(spec model.KindSpec, source, target *model.Translation) bool {
	if target == nil {
		return true
	}
	for _, f := range spec.TriggerFields {
		if util.IsEmptyText(source.Field(f)) {
			continue
		}
		if !model.HasTranslation(target.Field(f)) {
			return true
		}
	}
	return false
}

func hasSource(spec model.KindSpec, source *model.Translation) bool {
	if source == nil {
		return false
	}
	return slices.ContainsFunc(spec.TriggerFields, func(f string) bool {
		return !util.IsEmptyText(source.Field(f))
	})
}

func touchesTrigger(spec model.KindSpec, changed []string) bool {
	return slices.ContainsFunc(changed, func(f string) bool {
		return slices.Contains(spec.TriggerFields, f)
	})
}

func countEnqueued(ds []Decision) int {
	n := 0
	for _, d := range ds {
		if d.Enqueue && d.Err == nil {
			n++
		}
	}
	return n
}
