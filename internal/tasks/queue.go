// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/util"
)

// maxErrorLength bounds error_message values written to task rows.
const maxErrorLength = 500

// TaskStore persists task rows.
type TaskStore interface {
	UpsertTask(ctx context.Context, arg store.UpsertTaskParams) (model.TranslationTask, error)
}

// EnqueueRequest describes one translation to run asynchronously.
// An empty Method is resolved from the kind.
type EnqueueRequest struct {
	Kind     model.EntityKind
	EntityID int64
	Language string
	Method   string
	Force    bool
}

// Queue records PENDING task rows and hands messages to a Broker.
type Queue struct {
	broker Broker
	store  TaskStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQueue creates a queue.
func NewQueue(broker Broker, ts TaskStore, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{broker: broker, store: ts, logger: logger, now: time.Now}
}

// Enqueue writes a PENDING row for the request and pushes a message for it.
// It returns the new task ID. Re-enqueueing a pair overwrites its row.
func (q *Queue) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	spec, ok := model.Spec(req.Kind)
	if !ok {
		return "", fmt.Errorf("enqueue: unknown entity kind %q", req.Kind)
	}
	method := req.Method
	if method == "" {
		method = spec.Method
	}

	now := q.now()
	msg := Message{
		Name:       TaskName,
		TaskID:     uuid.NewString(),
		Kind:       req.Kind,
		EntityID:   req.EntityID,
		Language:   req.Language,
		Method:     method,
		Force:      req.Force,
		EnqueuedAt: now.UTC(),
	}

	params := store.UpsertTaskParams{
		EntityType:   req.Kind,
		EntityID:     req.EntityID,
		LanguageCode: req.Language,
		MethodName:   method,
		TaskID:       msg.TaskID,
		Status:       model.TaskPending,
		Now:          now,
	}
	if _, err := q.store.UpsertTask(ctx, params); err != nil {
		return "", fmt.Errorf("recording pending task: %w", err)
	}

	if err := q.broker.Push(ctx, msg, 0); err != nil {
		params.Status = model.TaskFailed
		params.ErrorMessage = util.Truncate("enqueue failed: "+err.Error(), maxErrorLength)
		params.Now = q.now()
		if _, uerr := q.store.UpsertTask(context.WithoutCancel(ctx), params); uerr != nil {
			q.logger.Error("failed to record enqueue failure", "error", uerr, "task_id", msg.TaskID)
		}
		return "", fmt.Errorf("pushing task: %w", err)
	}

	q.logger.Debug("translation task enqueued", msg.logAttrs()...)
	return msg.TaskID, nil
}
