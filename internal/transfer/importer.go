// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/util"
)

// maxImportBytes bounds the JSON read by ImportFromReader.
const maxImportBytes = 32 << 20

// ErrValidation is returned when the import data is rejected as a whole.
var ErrValidation = errors.New("validation failed")

// Notifier receives post-commit entity events.
type Notifier interface {
	Fire(ctx context.Context, ev hooks.Event)
}

// refAttributes are attributes holding the ID of a place.
var refAttributes = map[model.EntityKind]string{
	model.KindAstroImage:       "place_id",
	model.KindMainPageLocation: "place_id",
}

// Importer loads content from the export format.
type Importer struct {
	db        *sql.DB
	notifier  Notifier
	languages []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewImporter creates a new importer accepting rows in languages. notifier
// may be nil.
func NewImporter(db *sql.DB, notifier Notifier, languages []string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		db:        db,
		notifier:  notifier,
		languages: languages,
		logger:    logger,
		now:       time.Now,
	}
}

// importOrder lists kinds with places first so references can be remapped.
func importOrder(data *ExportData, opts ImportOptions) []model.EntityKind {
	var kinds []model.EntityKind
	for _, kind := range model.Kinds() {
		if _, ok := data.Entities[kind]; !ok {
			continue
		}
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, kind) {
			continue
		}
		kinds = append(kinds, kind)
	}
	slices.SortStableFunc(kinds, func(a, b model.EntityKind) int {
		switch {
		case a == model.KindPlace && b != model.KindPlace:
			return -1
		case b == model.KindPlace && a != model.KindPlace:
			return 1
		}
		return 0
	})
	return kinds
}

// Validate checks data against the kind registry and the configured
// languages.
func (i *Importer) Validate(data *ExportData) []ImportError {
	var errs []ImportError
	if data.Version != ExportVersion {
		errs = append(errs, ImportError{Entity: "export", Message: fmt.Sprintf("unsupported version %q", data.Version)})
	}

	for kind, entities := range data.Entities {
		spec, ok := model.Spec(kind)
		if !ok {
			errs = append(errs, ImportError{Entity: string(kind), Message: "unknown entity kind"})
			continue
		}
		for _, ent := range entities {
			if ent.ID <= 0 {
				errs = append(errs, ImportError{Entity: string(kind), ID: ent.ID, Message: "missing id"})
			}
			for name := range ent.Attributes {
				if !spec.HasAttribute(name) {
					errs = append(errs, ImportError{Entity: string(kind), ID: ent.ID, Message: "unknown attribute " + name})
				}
			}
			for lang, fields := range ent.Translations {
				if !slices.Contains(i.languages, lang) {
					errs = append(errs, ImportError{Entity: string(kind), ID: ent.ID, Message: "unsupported language " + lang})
				}
				for name := range fields {
					if !spec.HasField(name) {
						errs = append(errs, ImportError{Entity: string(kind), ID: ent.ID, Message: "unknown field " + name})
					}
				}
			}
		}
	}
	return errs
}

// Import writes data in one transaction and announces every written entity
// once committed.
func (i *Importer) Import(ctx context.Context, data *ExportData, opts ImportOptions) (*ImportResult, error) {
	result := NewImportResult(opts.DryRun)
	if opts.ConflictStrategy == "" {
		opts.ConflictStrategy = ConflictSkip
	}

	if verrs := i.Validate(data); len(verrs) > 0 {
		result.Errors = verrs
		return result, ErrValidation
	}

	var events []hooks.Event
	run := func(q *store.Queries) error {
		var err error
		events, err = i.importAll(ctx, q, data, opts, result)
		return err
	}

	if opts.DryRun {
		// Writes happen on a transaction that is always rolled back.
		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("beginning transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := run(store.New(i.db).WithTx(tx)); err != nil {
			return result, err
		}
		return result, nil
	}

	if err := store.RunInTx(ctx, i.db, run); err != nil {
		return result, err
	}

	if i.notifier != nil {
		hookCtx := context.WithoutCancel(ctx)
		for _, ev := range events {
			i.notifier.Fire(hookCtx, ev)
		}
	}
	i.logger.Info("content imported",
		"created", result.TotalCreated(),
		"updated", result.TotalUpdated(),
		"strategy", opts.ConflictStrategy)
	return result, nil
}

func (i *Importer) importAll(ctx context.Context, q *store.Queries, data *ExportData, opts ImportOptions, result *ImportResult) ([]hooks.Event, error) {
	now := i.now().UTC()
	placeIDs := make(map[int64]int64)
	var events []hooks.Event

	for _, kind := range importOrder(data, opts) {
		spec := model.MustSpec(kind)
		for _, ent := range data.Entities[kind] {
			attrs, err := i.remapRefs(ctx, q, kind, ent.Attributes, placeIDs)
			if err != nil {
				result.AddError(string(kind), ent.ID, err.Error())
				result.IncrementSkipped(string(kind))
				continue
			}

			exists, err := q.EntityExists(ctx, kind, ent.ID)
			if err != nil {
				return nil, fmt.Errorf("checking %s %d: %w", kind, ent.ID, err)
			}

			id := ent.ID
			created := false
			switch {
			case exists && opts.ConflictStrategy == ConflictSkip:
				result.IncrementSkipped(string(kind))
				if kind == model.KindPlace {
					placeIDs[ent.ID] = ent.ID
				}
				continue
			case exists:
				if err := q.UpdateEntity(ctx, kind, id, attrs, now); err != nil {
					return nil, fmt.Errorf("updating %s %d: %w", kind, id, err)
				}
				result.IncrementUpdated(string(kind))
			default:
				entity, err := q.CreateEntity(ctx, kind, attrs, now)
				if err != nil {
					return nil, fmt.Errorf("creating %s: %w", kind, err)
				}
				id = entity.ID
				created = true
				result.IncrementCreated(string(kind))
			}
			if kind == model.KindPlace {
				placeIDs[ent.ID] = id
			}

			for lang, fields := range ent.Translations {
				fields = withSlug(spec, fields)
				if err := q.UpsertTranslation(ctx, kind, id, lang, fields, now); err != nil {
					return nil, fmt.Errorf("writing %s translation of %s %d: %w", lang, kind, id, err)
				}
			}

			events = append(events, hooks.Event{
				Type:          hooks.EntitySaved,
				Kind:          kind,
				EntityID:      id,
				ChangedFields: spec.TriggerFields,
				Created:       created,
			})
		}
	}
	return events, nil
}

// remapRefs rewrites place references to the IDs places received in this
// import. References to places outside the import must already exist.
func (i *Importer) remapRefs(ctx context.Context, q *store.Queries, kind model.EntityKind, attrs map[string]string, placeIDs map[int64]int64) (map[string]string, error) {
	attr, ok := refAttributes[kind]
	if !ok || attrs[attr] == "" {
		return attrs, nil
	}
	old, err := strconv.ParseInt(attrs[attr], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s is not a numeric id", attr)
	}

	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	if id, ok := placeIDs[old]; ok {
		out[attr] = strconv.FormatInt(id, 10)
		return out, nil
	}
	exists, err := q.EntityExists(ctx, model.KindPlace, old)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("place %d does not exist", old)
	}
	return out, nil
}

// withSlug normalizes a slug field carried by the row.
func withSlug(spec model.KindSpec, fields map[string]string) map[string]string {
	slug, ok := fields[model.FieldSlug]
	if !spec.HasField(model.FieldSlug) || !ok || !model.HasTranslation(slug) {
		return fields
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	out[model.FieldSlug] = util.CanonicalSlugify(slug, true)
	return out
}

// ImportFromReader decodes an export from r and imports it.
func (i *Importer) ImportFromReader(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	var data ExportData
	if err := json.NewDecoder(io.LimitReader(r, maxImportBytes)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return i.Import(ctx, &data, opts)
}
