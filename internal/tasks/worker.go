// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/folio-go/internal/llm"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/util"
)

// ErrMessageNotFound is written to the task row when the entity is gone.
const ErrMessageNotFound = "Instance not found"

// WorkerStore is the persistence needed by a Worker.
type WorkerStore interface {
	TaskStore
	EntityExists(ctx context.Context, kind model.EntityKind, id int64) (bool, error)
}

// Translator executes one translation method.
type Translator interface {
	Dispatch(ctx context.Context, kind model.EntityKind, method string, id int64, lang string, force bool) (map[string]string, error)
}

// Result is the outcome of handling one message.
type Result struct {
	TaskID string
	Status model.TaskStatus
	Fields map[string]string
	Error  string
	// Retry is set when the message should be pushed again after RetryIn.
	Retry   *Message
	RetryIn time.Duration
}

// Worker executes translation messages and records their status.
type Worker struct {
	store      WorkerStore
	translator Translator
	policy     RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// NewWorker creates a worker.
func NewWorker(ws WorkerStore, translator Translator, policy RetryPolicy, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:      ws,
		translator: translator,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle runs msg to completion. It never panics and never returns an
// error; failures are reported in the Result and in the task row.
func (w *Worker) Handle(ctx context.Context, msg Message) Result {
	log := w.logger.With(msg.logAttrs()...)

	w.record(ctx, msg, model.TaskRunning, "")

	exists, err := w.store.EntityExists(ctx, msg.Kind, msg.EntityID)
	if err != nil {
		return w.fail(ctx, log, msg, err)
	}
	if !exists {
		w.record(ctx, msg, model.TaskFailed, ErrMessageNotFound)
		log.Warn("translation task target missing")
		return Result{TaskID: msg.TaskID, Status: model.TaskFailed, Error: ErrMessageNotFound}
	}

	fields, err := w.dispatch(ctx, msg)
	if err != nil {
		return w.fail(ctx, log, msg, err)
	}

	w.record(ctx, msg, model.TaskCompleted, "")
	log.Info("translation task completed", "fields", len(fields))
	return Result{TaskID: msg.TaskID, Status: model.TaskCompleted, Fields: fields}
}

// dispatch calls the translator, turning a panic into an error.
func (w *Worker) dispatch(ctx context.Context, msg Message) (fields map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translation panic: %v", r)
		}
	}()
	return w.translator.Dispatch(ctx, msg.Kind, msg.Method, msg.EntityID, msg.Language, msg.Force)
}

// fail marks the task FAILED and schedules a retry for transient errors
// while the policy allows it.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, msg Message, err error) Result {
	reason := util.Truncate(err.Error(), maxErrorLength)
	w.record(ctx, msg, model.TaskFailed, reason)

	res := Result{TaskID: msg.TaskID, Status: model.TaskFailed, Error: reason}
	transient := llm.IsTransient(err) || store.IsTransient(err)
	if !transient || ctx.Err() != nil || !w.policy.CanRetry(msg.Retry) {
		log.Error("translation task failed", "error", err, "transient", transient)
		return res
	}

	next := msg
	next.Retry++
	next.EnqueuedAt = w.now().UTC()
	res.Retry = &next
	res.RetryIn = w.policy.Delay(msg.Retry)
	log.Warn("translation task failed, retrying", "error", err, "retry_in", res.RetryIn.String())
	return res
}

// record writes the task row. Errors are logged: a failed status write
// must not prevent the translation itself.
func (w *Worker) record(ctx context.Context, msg Message, status model.TaskStatus, errMsg string) {
	_, err := w.store.UpsertTask(context.WithoutCancel(ctx), store.UpsertTaskParams{
		EntityType:   msg.Kind,
		EntityID:     msg.EntityID,
		LanguageCode: msg.Language,
		MethodName:   msg.Method,
		TaskID:       msg.TaskID,
		Status:       status,
		ErrorMessage: errMsg,
		Attempts:     msg.Retry + 1,
		Now:          w.now(),
	})
	if err != nil {
		w.logger.Error("failed to record task status",
			"error", err,
			"task_id", msg.TaskID,
			"status", status)
	}
}
