// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

func translationColumns(spec model.KindSpec) string {
	cols := append([]string{"master_id", "language_code"}, spec.FieldNames()...)
	cols = append(cols, "updated_at")
	return strings.Join(cols, ", ")
}

func scanTranslation(spec model.KindSpec, row interface{ Scan(...any) error }) (model.Translation, error) {
	t := model.Translation{Fields: make(map[string]string, len(spec.Fields))}
	values := make([]string, len(spec.Fields))
	dest := []any{&t.EntityID, &t.Language}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &t.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return model.Translation{}, err
	}
	for i, f := range spec.Fields {
		t.Fields[f.Name] = values[i]
	}
	return t, nil
}

// GetTranslation returns the translation row of an entity for one
// language, or ErrNotFound when no row exists.
func (q *Queries) GetTranslation(ctx context.Context, kind model.EntityKind, id int64, lang string) (model.Translation, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return model.Translation{}, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE master_id = ? AND language_code = ?",
		translationColumns(spec), spec.TranslationTable)
	t, err := scanTranslation(spec, q.db.QueryRowContext(ctx, query, id, lang))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Translation{}, ErrNotFound
	}
	return t, err
}

// ListTranslations returns every language row of one entity.
func (q *Queries) ListTranslations(ctx context.Context, kind model.EntityKind, id int64) ([]model.Translation, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE master_id = ? ORDER BY language_code",
		translationColumns(spec), spec.TranslationTable)
	return q.queryTranslations(ctx, spec, query, id)
}

// ListTranslationsByLanguage returns the rows of all entities of kind in
// one language, keyed by entity id.
func (q *Queries) ListTranslationsByLanguage(ctx context.Context, kind model.EntityKind, lang string) (map[int64]model.Translation, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE language_code = ?",
		translationColumns(spec), spec.TranslationTable)
	items, err := q.queryTranslations(ctx, spec, query, lang)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Translation, len(items))
	for _, t := range items {
		byID[t.EntityID] = t
	}
	return byID, nil
}

func (q *Queries) queryTranslations(ctx context.Context, spec model.KindSpec, query string, args ...any) ([]model.Translation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Translation
	for rows.Next() {
		t, err := scanTranslation(spec, rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// UpsertTranslation writes fields into the (entity, language) row,
// creating it if needed. Columns absent from fields are left untouched on
// an existing row and stored empty on a new one.
func (q *Queries) UpsertTranslation(ctx context.Context, kind model.EntityKind, id int64, lang string, fields map[string]string, now time.Time) error {
	spec, err := kindSpec(kind)
	if err != nil {
		return err
	}

	cols := []string{"master_id", "language_code", "updated_at"}
	args := []any{id, lang, now.UTC()}
	updates := []string{"updated_at = excluded.updated_at"}
	for _, f := range spec.Fields {
		v, ok := fields[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Name)
		args = append(args, v)
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", f.Name, f.Name))
	}
	if len(cols) == 3 && len(fields) > 0 {
		return fmt.Errorf("%s has none of the given fields", kind)
	}
	for name := range fields {
		if !spec.HasField(name) {
			return fmt.Errorf("%s has no translatable field %q", kind, name)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (master_id, language_code) DO UPDATE SET %s",
		spec.TranslationTable, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(updates, ", "))
	_, err = q.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteTranslation removes one language row.
func (q *Queries) DeleteTranslation(ctx context.Context, kind model.EntityKind, id int64, lang string) error {
	spec, err := kindSpec(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE master_id = ? AND language_code = ?", spec.TranslationTable)
	return expectOne(q.db.ExecContext(ctx, query, id, lang))
}
