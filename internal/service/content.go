// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/util"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Notifier receives post-commit entity events.
type Notifier interface {
	Fire(ctx context.Context, ev hooks.Event)
}

// ContentConfig holds the language setup of the content service.
type ContentConfig struct {
	DefaultLanguage string
	Languages       []string
}

// ContentInput is an editor write. Attributes and Fields hold only the keys
// being set; Fields are default-language values. Translations holds
// explicit edits of other languages keyed by language code.
type ContentInput struct {
	Attributes   map[string]string            `json:"attributes,omitempty"`
	Fields       map[string]string            `json:"fields,omitempty"`
	Translations map[string]map[string]string `json:"translations,omitempty"`
}

// ContentRecord is an entity with all of its translation rows and tasks.
type ContentRecord struct {
	Entity       model.Entity
	Translations map[string]map[string]string
	Tasks        []model.TranslationTask
	Status       string
}

// ContentService performs editor CRUD and announces changes through a
// Notifier once the transaction has committed.
type ContentService struct {
	db       *sql.DB
	queries  *store.Queries
	notifier Notifier
	cfg      ContentConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewContentService creates a content service.
func NewContentService(db *sql.DB, notifier Notifier, cfg ContentConfig, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		db:       db,
		queries:  store.New(db),
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create inserts an entity and its translation rows.
func (s *ContentService) Create(ctx context.Context, kind model.EntityKind, in ContentInput) (model.Entity, error) {
	spec, err := s.validate(ctx, kind, in)
	if err != nil {
		return model.Entity{}, err
	}
	fields := s.withSlug(spec, in.Fields, nil)

	var entity model.Entity
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		now := s.now()
		entity, err = q.CreateEntity(ctx, kind, in.Attributes, now)
		if err != nil {
			return err
		}
		if err := q.UpsertTranslation(ctx, kind, entity.ID, s.cfg.DefaultLanguage, fields, now); err != nil {
			return err
		}
		return s.writeTranslations(ctx, q, kind, entity.ID, in.Translations, now)
	})
	if err != nil {
		return model.Entity{}, fmt.Errorf("creating %s: %w", kind, err)
	}

	changed := slices.Sorted(maps.Keys(in.Attributes))
	for name, v := range fields {
		if v != "" {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)

	s.logger.Info("content created", "kind", kind, "entity_id", entity.ID)
	s.fire(ctx, hooks.Event{
		Type:          hooks.EntitySaved,
		Kind:          kind,
		EntityID:      entity.ID,
		ChangedFields: slices.Compact(changed),
		Created:       true,
	})
	return entity, nil
}

// Update applies a partial write. Keys absent from the input keep their
// stored values.
func (s *ContentService) Update(ctx context.Context, kind model.EntityKind, id int64, in ContentInput) (model.Entity, error) {
	spec, err := s.validate(ctx, kind, in)
	if err != nil {
		return model.Entity{}, err
	}

	var (
		entity  model.Entity
		changed []string
	)
	err = store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		before, err := q.GetEntity(ctx, kind, id)
		if err != nil {
			return err
		}
		source, err := q.GetTranslation(ctx, kind, id, s.cfg.DefaultLanguage)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		fields := s.withSlug(spec, in.Fields, source.Fields)

		for name, v := range in.Attributes {
			if before.Attributes[name] != v {
				changed = append(changed, name)
			}
		}
		for name, v := range fields {
			if source.Field(name) != v {
				changed = append(changed, name)
			}
		}

		now := s.now()
		if err := q.UpdateEntity(ctx, kind, id, in.Attributes, now); err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := q.UpsertTranslation(ctx, kind, id, s.cfg.DefaultLanguage, fields, now); err != nil {
				return err
			}
		}
		if err := s.writeTranslations(ctx, q, kind, id, in.Translations, now); err != nil {
			return err
		}
		entity, err = q.GetEntity(ctx, kind, id)
		return err
	})
	if err != nil {
		return model.Entity{}, fmt.Errorf("updating %s %d: %w", kind, id, err)
	}

	slices.Sort(changed)
	s.logger.Info("content updated", "kind", kind, "entity_id", id, "changed", changed)
	s.fire(ctx, hooks.Event{
		Type:          hooks.EntitySaved,
		Kind:          kind,
		EntityID:      id,
		ChangedFields: changed,
	})
	return entity, nil
}

// Delete removes an entity, its translations and its task rows.
func (s *ContentService) Delete(ctx context.Context, kind model.EntityKind, id int64) error {
	if _, ok := model.Spec(kind); !ok {
		return &ValidationError{Field: "kind", Message: "unknown entity kind"}
	}
	err := store.RunInTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := q.DeleteTasksForEntity(ctx, kind, id); err != nil {
			return err
		}
		return q.DeleteEntity(ctx, kind, id)
	})
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", kind, id, err)
	}

	s.logger.Info("content deleted", "kind", kind, "entity_id", id)
	s.fire(ctx, hooks.Event{Type: hooks.EntityDeleted, Kind: kind, EntityID: id})
	return nil
}

// Get returns an entity with every translation row and its tasks.
func (s *ContentService) Get(ctx context.Context, kind model.EntityKind, id int64) (ContentRecord, error) {
	entity, err := s.queries.GetEntity(ctx, kind, id)
	if err != nil {
		return ContentRecord{}, err
	}
	rows, err := s.queries.ListTranslations(ctx, kind, id)
	if err != nil {
		return ContentRecord{}, err
	}
	tasks, err := s.queries.ListTasksForEntity(ctx, kind, id)
	if err != nil {
		return ContentRecord{}, err
	}

	translations := make(map[string]map[string]string, len(rows))
	for _, t := range rows {
		translations[t.Language] = t.Fields
	}
	return ContentRecord{
		Entity:       entity,
		Translations: translations,
		Tasks:        tasks,
		Status:       model.SummarizeTasks(tasks),
	}, nil
}

// List returns every entity of kind with its default-language fields.
func (s *ContentService) List(ctx context.Context, kind model.EntityKind) ([]ContentRecord, error) {
	entities, err := s.queries.ListEntities(ctx, kind)
	if err != nil {
		return nil, err
	}
	sources, err := s.queries.ListTranslationsByLanguage(ctx, kind, s.cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}

	records := make([]ContentRecord, 0, len(entities))
	for _, e := range entities {
		records = append(records, ContentRecord{
			Entity:       e,
			Translations: map[string]map[string]string{s.cfg.DefaultLanguage: sources[e.ID].Fields},
		})
	}
	return records, nil
}

// TranslationStatus returns the task rows of an entity and their summary.
func (s *ContentService) TranslationStatus(ctx context.Context, kind model.EntityKind, id int64) ([]model.TranslationTask, string, error) {
	if _, err := s.queries.GetEntity(ctx, kind, id); err != nil {
		return nil, "", err
	}
	tasks, err := s.queries.ListTasksForEntity(ctx, kind, id)
	if err != nil {
		return nil, "", err
	}
	return tasks, model.SummarizeTasks(tasks), nil
}

func (s *ContentService) validate(ctx context.Context, kind model.EntityKind, in ContentInput) (model.KindSpec, error) {
	spec, ok := model.Spec(kind)
	if !ok {
		return model.KindSpec{}, &ValidationError{Field: "kind", Message: "unknown entity kind"}
	}
	for name := range in.Attributes {
		if !spec.HasAttribute(name) {
			return spec, &ValidationError{Field: name, Message: "unknown attribute"}
		}
	}
	for name := range in.Fields {
		if !spec.HasField(name) {
			return spec, &ValidationError{Field: name, Message: "unknown field"}
		}
	}
	for lang, fields := range in.Translations {
		if !slices.Contains(s.cfg.Languages, lang) {
			return spec, &ValidationError{Field: "translations." + lang, Message: "unsupported language"}
		}
		if lang == s.cfg.DefaultLanguage {
			return spec, &ValidationError{Field: "translations." + lang, Message: "default language values belong in fields"}
		}
		for name := range fields {
			if !spec.HasField(name) {
				return spec, &ValidationError{Field: "translations." + lang + "." + name, Message: "unknown field"}
			}
		}
	}

	if placeID, ok := in.Attributes["place_id"]; ok && placeID != "" {
		id, err := strconv.ParseInt(placeID, 10, 64)
		if err != nil {
			return spec, &ValidationError{Field: "place_id", Message: "must be a numeric id"}
		}
		exists, err := s.queries.EntityExists(ctx, model.KindPlace, id)
		if err != nil {
			return spec, err
		}
		if !exists {
			return spec, &ValidationError{Field: "place_id", Message: "place does not exist"}
		}
	}
	return spec, nil
}

// withSlug returns fields with the default-language slug maintained for
// kinds that carry one: an explicit slug is normalized, otherwise a new
// name derives it.
func (s *ContentService) withSlug(spec model.KindSpec, fields, current map[string]string) map[string]string {
	if !spec.HasField(model.FieldSlug) {
		return fields
	}
	out := maps.Clone(fields)
	if out == nil {
		out = map[string]string{}
	}
	if slug, ok := out[model.FieldSlug]; ok && slug != "" {
		out[model.FieldSlug] = util.CanonicalSlugify(slug, true)
		return out
	}
	name, ok := out[model.FieldName]
	if !ok {
		name = current[model.FieldName]
		if current[model.FieldSlug] != "" {
			return out
		}
	}
	if name != "" {
		out[model.FieldSlug] = util.CanonicalSlugify(name, true)
	}
	return out
}

func (s *ContentService) writeTranslations(ctx context.Context, q *store.Queries, kind model.EntityKind, id int64, edits map[string]map[string]string, now time.Time) error {
	for _, lang := range slices.Sorted(maps.Keys(edits)) {
		if len(edits[lang]) == 0 {
			continue
		}
		if err := q.UpsertTranslation(ctx, kind, id, lang, edits[lang], now); err != nil {
			return err
		}
	}
	return nil
}

// fire runs after commit, so a client that went away must not cancel the hooks.
func (s *ContentService) fire(ctx context.Context, ev hooks.Event) {
	if s.notifier != nil {
		s.notifier.Fire(context.WithoutCancel(ctx), ev)
	}
}
