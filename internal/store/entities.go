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

func kindSpec(kind model.EntityKind) (model.KindSpec, error) {
	spec, ok := model.Spec(kind)
	if !ok {
		return model.KindSpec{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return spec, nil
}

func entityColumns(spec model.KindSpec) string {
	cols := append([]string{"id"}, spec.Attributes...)
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func scanEntity(spec model.KindSpec, row interface{ Scan(...any) error }) (model.Entity, error) {
	e := model.Entity{Kind: spec.Kind, Attributes: make(map[string]string, len(spec.Attributes))}
	values := make([]string, len(spec.Attributes))
	dest := []any{&e.ID}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &e.CreatedAt, &e.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return model.Entity{}, err
	}
	for i, a := range spec.Attributes {
		e.Attributes[a] = values[i]
	}
	return e, nil
}

func checkAttributes(spec model.KindSpec, attrs map[string]string) error {
	for name := range attrs {
		if !spec.HasAttribute(name) {
			return fmt.Errorf("%s has no attribute %q", spec.Kind, name)
		}
	}
	return nil
}

// CreateEntity inserts a new entity row. Attributes not present in attrs
// are stored empty.
func (q *Queries) CreateEntity(ctx context.Context, kind model.EntityKind, attrs map[string]string, now time.Time) (model.Entity, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return model.Entity{}, err
	}
	if err := checkAttributes(spec, attrs); err != nil {
		return model.Entity{}, err
	}

	cols := append(append([]string{}, spec.Attributes...), "created_at", "updated_at")
	args := make([]any, 0, len(cols))
	for _, a := range spec.Attributes {
		args = append(args, attrs[a])
	}
	args = append(args, now.UTC(), now.UTC())

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		spec.Table, strings.Join(cols, ", "), placeholders(len(cols)), entityColumns(spec))
	return scanEntity(spec, q.db.QueryRowContext(ctx, query, args...))
}

// GetEntity returns one entity or ErrNotFound.
func (q *Queries) GetEntity(ctx context.Context, kind model.EntityKind, id int64) (model.Entity, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return model.Entity{}, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", entityColumns(spec), spec.Table)
	e, err := scanEntity(spec, q.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, ErrNotFound
	}
	return e, err
}

// EntityExists reports whether the entity row is present.
func (q *Queries) EntityExists(ctx context.Context, kind model.EntityKind, id int64) (bool, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return false, err
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", spec.Table)
	if err := q.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEntities returns every entity of kind ordered by id.
func (q *Queries) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	spec, err := kindSpec(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", entityColumns(spec), spec.Table)
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Entity
	for rows.Next() {
		e, err := scanEntity(spec, rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// UpdateEntity overwrites the given attributes and bumps updated_at.
func (q *Queries) UpdateEntity(ctx context.Context, kind model.EntityKind, id int64, attrs map[string]string, now time.Time) error {
	spec, err := kindSpec(kind)
	if err != nil {
		return err
	}
	if err := checkAttributes(spec, attrs); err != nil {
		return err
	}

	sets := []string{"updated_at = ?"}
	args := []any{now.UTC()}
	for _, a := range spec.Attributes {
		if v, ok := attrs[a]; ok {
			sets = append(sets, a+" = ?")
			args = append(args, v)
		}
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", spec.Table, strings.Join(sets, ", "))
	return expectOne(q.db.ExecContext(ctx, query, args...))
}

// DeleteEntity removes the entity and its translation rows. The rows are
// deleted explicitly since foreign_keys is a per-connection pragma.
func (q *Queries) DeleteEntity(ctx context.Context, kind model.EntityKind, id int64) error {
	spec, err := kindSpec(kind)
	if err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE master_id = ?", spec.TranslationTable), id); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", spec.Table)
	return expectOne(q.db.ExecContext(ctx, query, id))
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
