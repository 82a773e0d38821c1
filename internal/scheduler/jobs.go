// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/trigger"
)

// Job names.
const (
	JobBackfill = "translation_backfill"
	JobReaper   = "stale_task_reaper"
	JobCleanup  = "task_cleanup"
)

// StaleTaskMessage is recorded on tasks the reaper fails.
const StaleTaskMessage = "stale"

// TriggerRunner evaluates the save hook for one entity.
type TriggerRunner interface {
	Run(ctx context.Context, req trigger.Request) ([]trigger.Decision, error)
}

// MaintenanceStore is the persistence used by the maintenance jobs.
type MaintenanceStore interface {
	ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error)
	ListTasksForEntity(ctx context.Context, kind model.EntityKind, id int64) ([]model.TranslationTask, error)
	FailStaleTasks(ctx context.Context, before time.Time, message string, now time.Time) (int64, error)
	DeleteCompletedTasksBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// BackfillJob re-runs the trigger for every entity so pairs whose
// translation failed or was interrupted are enqueued again. Entities with
// a task still in progress are skipped.
func BackfillJob(st MaintenanceStore, runner TriggerRunner, schedule string, logger *slog.Logger) Job {
	return Job{
		Name:        JobBackfill,
		Description: "Enqueue translations for entities with missing target languages",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			enqueued := 0
			for _, kind := range model.Kinds() {
				entities, err := st.ListEntities(ctx, kind)
				if err != nil {
					return err
				}
				for _, e := range entities {
					if err := ctx.Err(); err != nil {
						return err
					}
					tasks, err := st.ListTasksForEntity(ctx, kind, e.ID)
					if err != nil {
						return err
					}
					if model.SummarizeTasks(tasks) == model.SummaryInProgress {
						continue
					}
					decisions, err := runner.Run(ctx, trigger.Request{Kind: kind, EntityID: e.ID})
					if err != nil {
						logger.Warn("backfill skipped entity", "kind", kind, "entity_id", e.ID, "error", err)
						continue
					}
					for _, d := range decisions {
						if d.Enqueue && d.Err == nil {
							enqueued++
						}
					}
				}
			}
			if enqueued > 0 {
				logger.Info("translation backfill enqueued tasks", "count", enqueued)
			}
			return nil
		},
	}
}

// ReaperJob fails tasks stuck in RUNNING for longer than staleAfter, such
// as those of a worker killed mid-task. The next backfill picks them up.
func ReaperJob(st MaintenanceStore, staleAfter time.Duration, schedule string, logger *slog.Logger) Job {
	return Job{
		Name:        JobReaper,
		Description: "Mark tasks stuck in RUNNING as failed",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			now := time.Now()
			n, err := st.FailStaleTasks(ctx, now.Add(-staleAfter), StaleTaskMessage, now)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Warn("failed stale translation tasks", "count", n, "stale_after", staleAfter)
			}
			return nil
		},
	}
}

// CleanupJob deletes completed tasks and event log rows past retention.
// A zero retention keeps the rows.
func CleanupJob(st MaintenanceStore, taskRetention, eventRetention time.Duration, schedule string, logger *slog.Logger) Job {
	return Job{
		Name:        JobCleanup,
		Description: "Delete old completed tasks and event log entries",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			now := time.Now()
			if taskRetention > 0 {
				n, err := st.DeleteCompletedTasksBefore(ctx, now.Add(-taskRetention))
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Info("deleted completed translation tasks", "count", n)
				}
			}
			if eventRetention > 0 {
				n, err := st.DeleteEventsBefore(ctx, now.Add(-eventRetention))
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Info("deleted old events", "count", n)
				}
			}
			return nil
		},
	}
}
