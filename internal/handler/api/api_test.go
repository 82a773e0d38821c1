// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/auth"
	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/transfer"
	"github.com/olegiv/folio-go/internal/trigger"
)

const (
	adminUser     = "admin"
	adminPassword = "correct horse battery staple"
)

type fakeTrigger struct {
	mu       sync.Mutex
	requests []trigger.Request
}

func (f *fakeTrigger) Run(_ context.Context, req trigger.Request) ([]trigger.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return []trigger.Decision{
		{Language: "pl", Enqueue: true, Force: req.Force, TaskID: "task-pl"},
		{Language: "de", Enqueue: false},
	}, nil
}

type testEnv struct {
	router  http.Handler
	content *service.ContentService
	queries *store.Queries
	trigger *fakeTrigger
	cache   *cache.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	logger := testutil.TestLoggerSilent()

	negotiator := middleware.NewLanguageNegotiator("en", []string{"en", "pl", "de"})
	res, err := cache.NewCacheWithInfo(cache.DefaultCacheConfig())
	require.NoError(t, err)
	mgr := cache.NewManager(res, negotiator.Resolve, 0, logger)
	t.Cleanup(func() { _ = mgr.Close() })

	registry := hooks.NewRegistry(logger)
	mgr.Invalidator.Register(registry)

	content := service.NewContentService(db, registry, service.ContentConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "pl", "de"},
	}, logger)
	queries := store.New(db)
	ft := &fakeTrigger{}

	h := NewHandler(Deps{
		Public:   service.NewPublicService(db, "en", logger),
		Content:  content,
		Events:   service.NewEventService(db, logger),
		Tasks:    queries,
		Trigger:  ft,
		Cache:    mgr,
		Exporter: transfer.NewExporter(queries, "en", []string{"en", "pl", "de"}, logger),
		Importer: transfer.NewImporter(db, registry, []string{"en", "pl", "de"}, logger),
		Logger:   logger,
	})

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	router := NewRouter(h, Routes{
		Language:  negotiator.Middleware,
		Cache:     mgr.Responses.Middleware,
		AdminAuth: middleware.AdminAuth(auth.Credentials{User: adminUser, PasswordHash: hash}, nil, logger),
	})

	return &testEnv{router: router, content: content, queries: queries, trigger: ft, cache: mgr}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, admin bool, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.SetBasicAuth(adminUser, adminPassword)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

func (e *testEnv) createImage(t *testing.T, name, category string) int64 {
	t.Helper()
	entity, err := e.content.Create(context.Background(), model.KindAstroImage, service.ContentInput{
		Attributes: map[string]string{"category": category, "image_url": "/img/" + name + ".jpg"},
		Fields:     map[string]string{model.FieldName: name},
	})
	require.NoError(t, err)
	return entity.ID
}

func TestPublicImagesCacheAndInvalidation(t *testing.T) {
	env := newTestEnv(t)
	env.createImage(t, "Orion Nebula", "Deep Sky")
	target := "/v1/image?filter=Deep%20Sky&lang=en"

	first := env.do(t, http.MethodGet, target, nil, false, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := env.do(t, http.MethodGet, target, nil, false, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, etag, second.Header().Get("ETag"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	notModified := env.do(t, http.MethodGet, target, nil, false, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.Bytes())

	// A new image of the same category must show up on the next request.
	env.createImage(t, "Andromeda", "Deep Sky")

	third := env.do(t, http.MethodGet, target, nil, false, nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.NotEqual(t, etag, third.Header().Get("ETag"))

	var images []service.ImageView
	decodeData(t, third, &images)
	assert.Len(t, images, 2)
}

func TestPublicImagesLanguageVariants(t *testing.T) {
	env := newTestEnv(t)
	id := env.createImage(t, "Orion Nebula", "Deep Sky")
	_, err := env.content.Update(context.Background(), model.KindAstroImage, id, service.ContentInput{
		Translations: map[string]map[string]string{"pl": {model.FieldName: "Mgławica Oriona"}},
	})
	require.NoError(t, err)

	en := env.do(t, http.MethodGet, "/v1/image/"+strconv.FormatInt(id, 10), nil, false, nil)
	pl := env.do(t, http.MethodGet, "/v1/image/"+strconv.FormatInt(id, 10), nil, false,
		map[string]string{"Accept-Language": "pl-PL,pl;q=0.9"})
	require.Equal(t, http.StatusOK, en.Code)
	require.Equal(t, http.StatusOK, pl.Code)
	assert.Equal(t, "pl", pl.Header().Get("Content-Language"))

	var enView, plView service.ImageView
	decodeData(t, en, &enView)
	decodeData(t, pl, &plView)
	assert.Equal(t, "Orion Nebula", enView.Name)
	assert.Equal(t, "Mgławica Oriona", plView.Name)
}

func TestPublicErrorsAreNotCached(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/image/999", nil, false, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))

	w = env.do(t, http.MethodGet, "/v1/image/abc", nil, false, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/admin/v1/place", nil, false, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/admin/v1/place", nil, true, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminEntityCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/admin/v1/place", service.ContentInput{
		Attributes: map[string]string{"country": "US"},
		Fields:     map[string]string{model.FieldName: "Hawaii"},
	}, true, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created EntityResponse
	decodeData(t, w, &created)
	assert.Equal(t, model.KindPlace, created.Kind)
	assert.Equal(t, "US", created.Attributes["country"])
	assert.Equal(t, "Hawaii", created.Translations["en"][model.FieldName])
	base := "/admin/v1/place/" + strconv.FormatInt(created.ID, 10)

	w = env.do(t, http.MethodPatch, base, service.ContentInput{
		Fields: map[string]string{model.FieldName: "Big Island"},
	}, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated EntityResponse
	decodeData(t, w, &updated)
	assert.Equal(t, "Big Island", updated.Translations["en"][model.FieldName])

	w = env.do(t, http.MethodGet, "/admin/v1/place", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []EntityResponse
	decodeData(t, w, &list)
	assert.Len(t, list, 1)

	w = env.do(t, http.MethodDelete, base, nil, true, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, base, nil, true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEntityErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/admin/v1/planet", nil, true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/admin/v1/place/0", nil, true, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/place", bytes.NewBufferString(`{"bogus":1}`))
	req.SetBasicAuth(adminUser, adminPassword)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = env.do(t, http.MethodPost, "/admin/v1/place", service.ContentInput{
		Fields: map[string]string{"no_such_field": "x"},
	}, true, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminRetranslate(t *testing.T) {
	env := newTestEnv(t)
	id := env.createImage(t, "Orion Nebula", "Deep Sky")
	base := "/admin/v1/astro_image/" + strconv.FormatInt(id, 10)

	w := env.do(t, http.MethodPost, base+"/retranslate?force=true", nil, true, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var decisions []DecisionResponse
	decodeData(t, w, &decisions)
	require.Len(t, decisions, 2)
	assert.True(t, decisions[0].Enqueued)
	assert.True(t, decisions[0].Forced)
	assert.False(t, decisions[1].Enqueued)

	require.Len(t, env.trigger.requests, 1)
	assert.Equal(t, trigger.Request{Kind: model.KindAstroImage, EntityID: id, Force: true}, env.trigger.requests[0])

	w = env.do(t, http.MethodPost, "/admin/v1/astro_image/999/retranslate", nil, true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminTranslationStatusAndTasks(t *testing.T) {
	env := newTestEnv(t)
	id := env.createImage(t, "Orion Nebula", "Deep Sky")
	ctx := context.Background()
	now := time.Now().UTC()

	for lang, status := range map[string]model.TaskStatus{"pl": model.TaskCompleted, "de": model.TaskRunning} {
		_, err := env.queries.UpsertTask(ctx, store.UpsertTaskParams{
			EntityType:   model.KindAstroImage,
			EntityID:     id,
			LanguageCode: lang,
			MethodName:   "translate",
			TaskID:       "task-" + lang,
			Status:       status,
			Now:          now,
		})
		require.NoError(t, err)
	}

	w := env.do(t, http.MethodGet, "/admin/v1/astro_image/"+strconv.FormatInt(id, 10)+"/translation-status", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status struct {
		Status string         `json:"status"`
		Tasks  []TaskResponse `json:"tasks"`
	}
	decodeData(t, w, &status)
	assert.Equal(t, model.SummaryInProgress, status.Status)
	assert.Len(t, status.Tasks, 2)

	w = env.do(t, http.MethodGet, "/admin/v1/tasks?status=RUNNING", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tasks []TaskResponse
	decodeData(t, w, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "de", tasks[0].Language)

	w = env.do(t, http.MethodGet, "/admin/v1/tasks?status=bogus", nil, true, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/admin/v1/tasks/stats", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[model.TaskStatus]int64
	decodeData(t, w, &stats)
	assert.Equal(t, int64(1), stats[model.TaskCompleted])
	assert.Equal(t, int64(1), stats[model.TaskRunning])
}

func TestAdminCacheEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.createImage(t, "Orion Nebula", "Deep Sky")

	env.do(t, http.MethodGet, "/v1/image", nil, false, nil)
	hit := env.do(t, http.MethodGet, "/v1/image", nil, false, nil)
	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))

	w := env.do(t, http.MethodGet, "/admin/v1/cache", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info cache.Info
	decodeData(t, w, &info)
	assert.Equal(t, cache.CacheBackendMemory, info.Backend)
	assert.Positive(t, info.Stats.Hits)

	w = env.do(t, http.MethodDelete, "/admin/v1/cache", nil, true, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	miss := env.do(t, http.MethodGet, "/v1/image", nil, false, nil)
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

	w = env.do(t, http.MethodGet, "/admin/v1/events", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []EventResponse
	decodeData(t, w, &events)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventCategoryCache, events[0].Category)
}

func TestAdminJobsWithoutScheduler(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/admin/v1/jobs", nil, true, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/admin/v1/jobs/backfill/run", nil, true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExportImport(t *testing.T) {
	env := newTestEnv(t)
	id := env.createImage(t, "Orion Nebula", "Deep Sky")

	w := env.do(t, http.MethodGet, "/admin/v1/export?kinds=astro_image", nil, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	var data transfer.ExportData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	require.Len(t, data.Entities[model.KindAstroImage], 1)
	assert.Equal(t, id, data.Entities[model.KindAstroImage][0].ID)

	// Warm the public cache so the import has something to invalidate.
	target := "/v1/image?filter=Deep%20Sky&lang=en"
	env.do(t, http.MethodGet, target, nil, false, nil)
	assert.Equal(t, "HIT", env.do(t, http.MethodGet, target, nil, false, nil).Header().Get("X-Cache"))

	data.Entities[model.KindAstroImage][0].Translations["en"][model.FieldName] = "Orion Nebula (M42)"

	w = env.do(t, http.MethodPost, "/admin/v1/import?strategy=overwrite&dry_run=true", data, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dry transfer.ImportResult
	decodeData(t, w, &dry)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 1, dry.Updated[string(model.KindAstroImage)])

	w = env.do(t, http.MethodPost, "/admin/v1/import?strategy=overwrite", data, true, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result transfer.ImportResult
	decodeData(t, w, &result)
	assert.False(t, result.DryRun)
	assert.Equal(t, 1, result.Updated[string(model.KindAstroImage)])

	tr, err := env.queries.GetTranslation(context.Background(), model.KindAstroImage, id, "en")
	require.NoError(t, err)
	assert.Equal(t, "Orion Nebula (M42)", tr.Field(model.FieldName))
	assert.Equal(t, "MISS", env.do(t, http.MethodGet, target, nil, false, nil).Header().Get("X-Cache"))
}

func TestAdminImportErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/admin/v1/import?strategy=merge", transfer.ExportData{Version: transfer.ExportVersion}, true, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/admin/v1/export?kinds=page", nil, true, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/admin/v1/import", transfer.ExportData{Version: "0.1"}, true, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var result transfer.ImportResult
	decodeData(t, w, &result)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "unsupported version")

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/import", bytes.NewBufferString("{oops"))
	req.SetBasicAuth(adminUser, adminPassword)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
