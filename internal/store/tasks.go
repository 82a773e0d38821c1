// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

const taskColumns = `id, entity_type, entity_id, language_code, method_name, task_id,
	status, error_message, attempts, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (model.TranslationTask, error) {
	var t model.TranslationTask
	err := row.Scan(&t.ID, &t.EntityType, &t.EntityID, &t.LanguageCode, &t.MethodName, &t.TaskID,
		&t.Status, &t.ErrorMessage, &t.Attempts, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// UpsertTaskParams holds the values written on every task transition.
type UpsertTaskParams struct {
	EntityType   model.EntityKind
	EntityID     int64
	LanguageCode string
	MethodName   string
	TaskID       string
	Status       model.TaskStatus
	ErrorMessage string
	Attempts     int
	Now          time.Time
}

// UpsertTask creates or updates the single task row of an
// (entity_type, entity_id, language_code) triple.
func (q *Queries) UpsertTask(ctx context.Context, arg UpsertTaskParams) (model.TranslationTask, error) {
	const query = `
INSERT INTO translation_tasks (entity_type, entity_id, language_code, method_name, task_id,
	status, error_message, attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (entity_type, entity_id, language_code) DO UPDATE SET
	method_name = excluded.method_name,
	task_id = excluded.task_id,
	status = excluded.status,
	error_message = excluded.error_message,
	attempts = excluded.attempts,
	updated_at = excluded.updated_at
RETURNING ` + taskColumns

	now := arg.Now.UTC()
	return scanTask(q.db.QueryRowContext(ctx, query,
		arg.EntityType, arg.EntityID, arg.LanguageCode, arg.MethodName, arg.TaskID,
		arg.Status, arg.ErrorMessage, arg.Attempts, now, now))
}

// GetTask returns the task of one (entity, language) pair or ErrNotFound.
func (q *Queries) GetTask(ctx context.Context, kind model.EntityKind, id int64, lang string) (model.TranslationTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM translation_tasks
WHERE entity_type = ? AND entity_id = ? AND language_code = ?`
	t, err := scanTask(q.db.QueryRowContext(ctx, query, kind, id, lang))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TranslationTask{}, ErrNotFound
	}
	return t, err
}

// ListTasksForEntity returns the tasks of one entity ordered by language.
func (q *Queries) ListTasksForEntity(ctx context.Context, kind model.EntityKind, id int64) ([]model.TranslationTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM translation_tasks
WHERE entity_type = ? AND entity_id = ? ORDER BY language_code`
	return q.queryTasks(ctx, query, kind, id)
}

// ListTasksParams filters ListTasks. An empty Status matches every status.
type ListTasksParams struct {
	Status model.TaskStatus
	Limit  int
	Offset int
}

// ListTasks returns tasks ordered by most recent update.
func (q *Queries) ListTasks(ctx context.Context, arg ListTasksParams) ([]model.TranslationTask, error) {
	const query = `SELECT ` + taskColumns + ` FROM translation_tasks
WHERE (? = '' OR status = ?)
ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	return q.queryTasks(ctx, query, arg.Status, arg.Status, limit, arg.Offset)
}

// CountTasksByStatus returns the number of tasks in each status.
func (q *Queries) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM translation_tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.TaskStatus]int64)
	for rows.Next() {
		var status model.TaskStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteTasksForEntity removes every task of a deleted entity.
func (q *Queries) DeleteTasksForEntity(ctx context.Context, kind model.EntityKind, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM translation_tasks WHERE entity_type = ? AND entity_id = ?`, kind, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FailStaleTasks marks RUNNING tasks not updated since before as FAILED.
func (q *Queries) FailStaleTasks(ctx context.Context, before time.Time, message string, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
UPDATE translation_tasks SET status = ?, error_message = ?, updated_at = ?
WHERE status = ? AND updated_at < ?`,
		model.TaskFailed, message, now.UTC(), model.TaskRunning, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteCompletedTasksBefore removes COMPLETED tasks last updated before the cutoff.
func (q *Queries) DeleteCompletedTasksBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM translation_tasks WHERE status = ? AND updated_at < ?`,
		model.TaskCompleted, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) queryTasks(ctx context.Context, query string, args ...any) ([]model.TranslationTask, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.TranslationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
