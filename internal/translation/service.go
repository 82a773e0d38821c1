// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package translation turns default-language content into the other
// configured languages through an LLM, one entity and language at a time.
package translation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/util"
)

// Notifier receives an EntityTranslated event after fields were written.
type Notifier interface {
	Fire(ctx context.Context, ev hooks.Event)
}

// Config lists the languages the service translates between.
type Config struct {
	DefaultLanguage string
	Languages       []string
}

// Service fills missing translations of one (entity, language) pair.
// Calls are idempotent: a pair whose fields are all translated costs no
// LLM call and no write unless force is set.
type Service struct {
	db       *sql.DB
	queries  *store.Queries
	agent    *Agent
	cfg      Config
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a translation service. notifier may be nil.
func NewService(db *sql.DB, agent *Agent, cfg Config, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		queries:  store.New(db),
		agent:    agent,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// TranslateAstroImage translates name, description, exposure and processing details.
func (s *Service) TranslateAstroImage(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindAstroImage, id, lang, force)
}

// TranslateMainPageLocation translates the highlight name and story.
func (s *Service) TranslateMainPageLocation(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindMainPageLocation, id, lang, force)
}

// TranslatePlace translates the place name, using the country as a hint.
func (s *Service) TranslatePlace(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindPlace, id, lang, force)
}

// TranslateParlerTag translates a tag name and derives its slug.
func (s *Service) TranslateParlerTag(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindTag, id, lang, force)
}

// TranslateUser translates the short description and bio.
func (s *Service) TranslateUser(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindUser, id, lang, force)
}

// TranslateProjectImage translates name and description.
func (s *Service) TranslateProjectImage(ctx context.Context, id int64, lang string, force bool) (map[string]string, error) {
	return s.translate(ctx, model.KindProjectImage, id, lang, force)
}

// Dispatch invokes the service method named by a task. The method must
// belong to kind.
func (s *Service) Dispatch(ctx context.Context, kind model.EntityKind, method string, id int64, lang string, force bool) (map[string]string, error) {
	owner, ok := model.KindForMethod(method)
	if !ok || owner != kind {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownMethod, method, kind)
	}
	return s.translate(ctx, kind, id, lang, force)
}

func (s *Service) translate(ctx context.Context, kind model.EntityKind, id int64, lang string, force bool) (map[string]string, error) {
	spec := model.MustSpec(kind)
	if !slices.Contains(s.cfg.Languages, lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	entity, err := s.queries.GetEntity(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s %d: %w", kind, id, err)
	}

	source, err := s.translation(ctx, kind, id, s.cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if lang == s.cfg.DefaultLanguage {
		return source.Fields, nil
	}

	target, err := s.translation(ctx, kind, id, lang)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(spec.Fields))
	writes := make(map[string]string)
	fieldErrs := &FieldErrors{Kind: kind, EntityID: id, Language: lang}

	for _, f := range spec.Fields {
		if f.Handler == model.HandlerSlug {
			continue
		}

		current := target.Field(f.Name)
		if !force && model.HasTranslation(current) {
			result[f.Name] = current
			continue
		}

		src := source.Field(f.Name)
		if util.IsEmptyText(src) {
			continue
		}

		out, err := s.translateField(ctx, f.Handler, src, lang, entity)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("translation failed",
				"kind", kind, "entity_id", id, "language", lang, "field", f.Name, "error", err)
			out = model.FailedTranslation(src)
			fieldErrs.Fields = append(fieldErrs.Fields, &FieldError{Field: f.Name, Err: err})
		}
		result[f.Name] = out
		writes[f.Name] = out
	}

	if spec.HasField(model.FieldSlug) {
		if name := result[model.FieldName]; model.HasTranslation(name) {
			slug := util.CanonicalSlugify(name, true)
			result[model.FieldSlug] = slug
			if slug != target.Field(model.FieldSlug) {
				writes[model.FieldSlug] = slug
			}
		}
	}

	if len(writes) > 0 {
		err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
			return q.UpsertTranslation(ctx, kind, id, lang, writes, s.now())
		})
		if err != nil {
			return nil, fmt.Errorf("saving %s %d translation into %s: %w", kind, id, lang, err)
		}
		s.logger.Info("translation saved", "kind", kind, "entity_id", id, "language", lang, "fields", len(writes))
		if s.notifier != nil {
			s.notifier.Fire(context.WithoutCancel(ctx), hooks.Event{
				Type:     hooks.EntityTranslated,
				Kind:     kind,
				EntityID: id,
				Language: lang,
			})
		}
	}

	if len(fieldErrs.Fields) > 0 {
		return result, fieldErrs
	}
	return result, nil
}

// translation returns the (entity, language) row, or an empty one when
// none exists yet.
func (s *Service) translation(ctx context.Context, kind model.EntityKind, id int64, lang string) (model.Translation, error) {
	t, err := s.queries.GetTranslation(ctx, kind, id, lang)
	if errors.Is(err, store.ErrNotFound) {
		return model.Translation{EntityID: id, Language: lang, Fields: map[string]string{}}, nil
	}
	if err != nil {
		return model.Translation{}, fmt.Errorf("loading %s %d translation %s: %w", kind, id, lang, err)
	}
	return t, nil
}

func (s *Service) translateField(ctx context.Context, handler model.Handler, src, lang string, entity model.Entity) (string, error) {
	switch handler {
	case model.HandlerPlain:
		return s.agent.TranslatePlain(ctx, src, lang)
	case model.HandlerHTML:
		return s.agent.TranslateHTML(ctx, src, lang)
	case model.HandlerPlace:
		return s.agent.TranslatePlace(ctx, src, lang, entity.Attributes["country"])
	case model.HandlerTag:
		return s.agent.TranslateTag(ctx, src, lang)
	default:
		return "", fmt.Errorf("no translator for handler %q", handler)
	}
}
