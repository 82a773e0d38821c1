// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T, driver string) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "folio-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	cfg := DefaultDBConfig()
	cfg.Driver = driver
	db, err := NewDBWithConfig(dbPath, cfg)
	if err != nil {
		t.Fatalf("NewDBWithConfig: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	cfg := DefaultDBConfig()
	cfg.Driver = "postgres"
	_, err := NewDBWithConfig(":memory:", cfg)
	require.Error(t, err)
}

func TestMigrateBothDrivers(t *testing.T) {
	for _, driver := range []string{DriverModernc, DriverCGO} {
		t.Run(driver, func(t *testing.T) {
			db, cleanup := testDB(t, driver)
			defer cleanup()

			q := New(db)
			e, err := q.CreateEntity(context.Background(), model.KindPlace, map[string]string{"country": "US"}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, "US", e.Attributes["country"])
		})
	}
}

func TestEntityCRUD(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	img, err := q.CreateEntity(ctx, model.KindAstroImage, map[string]string{
		"image_url": "/media/m42.jpg",
		"category":  "Deep Sky",
	}, now)
	require.NoError(t, err)
	assert.NotZero(t, img.ID)
	assert.Equal(t, "", img.Attributes["place_id"])

	_, err = q.CreateEntity(ctx, model.KindAstroImage, map[string]string{"bogus": "x"}, now)
	require.Error(t, err)

	require.NoError(t, q.UpdateEntity(ctx, model.KindAstroImage, img.ID, map[string]string{"category": "Planets"}, now))
	got, err := q.GetEntity(ctx, model.KindAstroImage, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "Planets", got.Attributes["category"])
	assert.Equal(t, "/media/m42.jpg", got.Attributes["image_url"])

	all, err := q.ListEntities(ctx, model.KindAstroImage)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, q.DeleteEntity(ctx, model.KindAstroImage, img.ID))
	_, err = q.GetEntity(ctx, model.KindAstroImage, img.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	exists, err := q.EntityExists(ctx, model.KindAstroImage, img.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, q.UpdateEntity(ctx, model.KindAstroImage, img.ID, nil, now), ErrNotFound)
}

func TestUpsertTranslationKeepsOtherFields(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	img, err := q.CreateEntity(ctx, model.KindAstroImage, nil, now)
	require.NoError(t, err)

	require.NoError(t, q.UpsertTranslation(ctx, model.KindAstroImage, img.ID, "pl", map[string]string{
		model.FieldName:        "Mgławica Oriona",
		model.FieldDescription: "<p>Opis</p>",
	}, now))
	require.NoError(t, q.UpsertTranslation(ctx, model.KindAstroImage, img.ID, "pl", map[string]string{
		model.FieldExposureDetails: "10x300s",
	}, now))

	tr, err := q.GetTranslation(ctx, model.KindAstroImage, img.ID, "pl")
	require.NoError(t, err)
	assert.Equal(t, "Mgławica Oriona", tr.Field(model.FieldName))
	assert.Equal(t, "<p>Opis</p>", tr.Field(model.FieldDescription))
	assert.Equal(t, "10x300s", tr.Field(model.FieldExposureDetails))
	assert.Equal(t, "", tr.Field(model.FieldProcessingDetails))

	_, err = q.GetTranslation(ctx, model.KindAstroImage, img.ID, "de")
	assert.ErrorIs(t, err, ErrNotFound)

	err = q.UpsertTranslation(ctx, model.KindAstroImage, img.ID, "pl", map[string]string{"story": "x"}, now)
	require.Error(t, err)
}

func TestTranslationsCascadeOnDelete(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	place, err := q.CreateEntity(ctx, model.KindPlace, nil, now)
	require.NoError(t, err)
	require.NoError(t, q.UpsertTranslation(ctx, model.KindPlace, place.ID, "en", map[string]string{"name": "Hawaii"}, now))
	require.NoError(t, q.UpsertTranslation(ctx, model.KindPlace, place.ID, "pl", map[string]string{"name": "Hawaje"}, now))

	byLang, err := q.ListTranslationsByLanguage(ctx, model.KindPlace, "pl")
	require.NoError(t, err)
	assert.Equal(t, "Hawaje", byLang[place.ID].Field("name"))

	require.NoError(t, q.DeleteEntity(ctx, model.KindPlace, place.ID))
	rows, err := q.ListTranslations(ctx, model.KindPlace, place.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpsertTaskSingleRowPerLanguage(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	params := UpsertTaskParams{
		EntityType:   model.KindPlace,
		EntityID:     7,
		LanguageCode: "pl",
		MethodName:   model.MethodTranslatePlace,
		TaskID:       "task-1",
		Status:       model.TaskPending,
		Now:          now,
	}
	first, err := q.UpsertTask(ctx, params)
	require.NoError(t, err)

	params.TaskID = "task-2"
	params.Status = model.TaskFailed
	params.ErrorMessage = "boom"
	params.Attempts = 2
	second, err := q.UpsertTask(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "task-2", second.TaskID)
	assert.Equal(t, model.TaskFailed, second.Status)
	assert.Equal(t, 2, second.Attempts)

	tasks, err := q.ListTasksForEntity(ctx, model.KindPlace, 7)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	failed, err := q.ListTasks(ctx, ListTasksParams{Status: model.TaskFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	counts, err := q.CountTasksByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.TaskFailed])
}

func TestFailStaleTasksAndGC(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	old := time.Now().Add(-2 * time.Hour)

	_, err := q.UpsertTask(ctx, UpsertTaskParams{
		EntityType: model.KindTag, EntityID: 1, LanguageCode: "pl",
		MethodName: model.MethodTranslateTag, Status: model.TaskRunning, Now: old,
	})
	require.NoError(t, err)
	_, err = q.UpsertTask(ctx, UpsertTaskParams{
		EntityType: model.KindTag, EntityID: 2, LanguageCode: "pl",
		MethodName: model.MethodTranslateTag, Status: model.TaskCompleted, Now: old,
	})
	require.NoError(t, err)

	n, err := q.FailStaleTasks(ctx, time.Now().Add(-30*time.Minute), "stale", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	task, err := q.GetTask(ctx, model.KindTag, 1, "pl")
	require.NoError(t, err)
	assert.Equal(t, model.TaskFailed, task.Status)
	assert.Equal(t, "stale", task.ErrorMessage)

	n, err = q.DeleteCompletedTasksBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunInTxRollsBack(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	boom := errors.New("boom")
	err := RunInTx(ctx, db, func(q *Queries) error {
		if _, err := q.CreateEntity(ctx, model.KindTag, nil, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	tags, err := New(db).ListEntities(ctx, model.KindTag)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestEvents(t *testing.T) {
	db, cleanup := testDB(t, DriverModernc)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	_, err := q.CreateEvent(ctx, CreateEventParams{
		Level: model.EventLevelWarning, Category: model.EventCategoryTask,
		Message: "retrying", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	events, err := q.ListEvents(ctx, ListEventsParams{Level: model.EventLevelWarning})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "{}", events[0].Metadata)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(ErrNotFound))
	assert.False(t, IsTransient(nil))
}
