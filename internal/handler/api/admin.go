// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/scheduler"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/trigger"
)

const maxBodyBytes = 1 << 20

// EntityResponse is an entity in admin responses.
type EntityResponse struct {
	ID           int64                        `json:"id"`
	Kind         model.EntityKind             `json:"kind"`
	Attributes   map[string]string            `json:"attributes"`
	Translations map[string]map[string]string `json:"translations,omitempty"`
	Status       string                       `json:"translation_status,omitempty"`
	Tasks        []TaskResponse               `json:"tasks,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// TaskResponse is a translation task in admin responses.
type TaskResponse struct {
	EntityType   model.EntityKind `json:"entity_type"`
	EntityID     int64            `json:"entity_id"`
	Language     string           `json:"language"`
	Method       string           `json:"method"`
	TaskID       string           `json:"task_id"`
	Status       model.TaskStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Attempts     int              `json:"attempts"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// EventResponse is an event log entry in admin responses.
type EventResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DecisionResponse is one target language of a retranslate request.
type DecisionResponse struct {
	Language string `json:"language"`
	Enqueued bool   `json:"enqueued"`
	Forced   bool   `json:"forced"`
	TaskID   string `json:"task_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func toTaskResponses(tasks []model.TranslationTask) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskResponse{
			EntityType:   t.EntityType,
			EntityID:     t.EntityID,
			Language:     t.LanguageCode,
			Method:       t.MethodName,
			TaskID:       t.TaskID,
			Status:       t.Status,
			ErrorMessage: t.ErrorMessage,
			Attempts:     t.Attempts,
			UpdatedAt:    t.UpdatedAt,
		})
	}
	return out
}

func toEntityResponse(rec service.ContentRecord) EntityResponse {
	resp := EntityResponse{
		ID:           rec.Entity.ID,
		Kind:         rec.Entity.Kind,
		Attributes:   rec.Entity.Attributes,
		Translations: rec.Translations,
		Status:       rec.Status,
		CreatedAt:    rec.Entity.CreatedAt,
		UpdatedAt:    rec.Entity.UpdatedAt,
	}
	if len(rec.Tasks) > 0 {
		resp.Tasks = toTaskResponses(rec.Tasks)
	}
	return resp
}

// requireKind parses the {kind} URL parameter, writing 404 when unknown.
func requireKind(w http.ResponseWriter, r *http.Request) (model.EntityKind, bool) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		WriteNotFound(w, "Unknown entity kind")
		return "", false
	}
	return kind, true
}

func requireKindAndID(w http.ResponseWriter, r *http.Request) (model.EntityKind, int64, bool) {
	kind, ok := requireKind(w, r)
	if !ok {
		return "", 0, false
	}
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid entity ID", nil)
		return "", 0, false
	}
	return kind, id, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (service.ContentInput, bool) {
	var in service.ContentInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		return in, false
	}
	return in, true
}

// ListEntities handles GET /admin/v1/{kind}
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := requireKind(w, r)
	if !ok {
		return
	}
	records, err := h.Content.List(r.Context(), kind)
	if err != nil {
		h.writeServiceError(w, r, err, string(kind))
		return
	}
	out := make([]EntityResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toEntityResponse(rec))
	}
	WriteSuccess(w, out, &Meta{Total: int64(len(out))})
}

// GetEntity handles GET /admin/v1/{kind}/{id}
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := requireKindAndID(w, r)
	if !ok {
		return
	}
	rec, err := h.Content.Get(r.Context(), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	WriteSuccess(w, toEntityResponse(rec), nil)
}

// CreateEntity handles POST /admin/v1/{kind}
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := requireKind(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	entity, err := h.Content.Create(r.Context(), kind, in)
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	h.logContent(r, "Entity created", kind, entity.ID)

	rec, err := h.Content.Get(r.Context(), kind, entity.ID)
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	WriteCreated(w, toEntityResponse(rec))
}

// UpdateEntity handles PATCH /admin/v1/{kind}/{id}
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := requireKindAndID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	if _, err := h.Content.Update(r.Context(), kind, id, in); err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	h.logContent(r, "Entity updated", kind, id)

	rec, err := h.Content.Get(r.Context(), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	WriteSuccess(w, toEntityResponse(rec), nil)
}

// DeleteEntity handles DELETE /admin/v1/{kind}/{id}
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := requireKindAndID(w, r)
	if !ok {
		return
	}
	if err := h.Content.Delete(r.Context(), kind, id); err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	h.logContent(r, "Entity deleted", kind, id)
	w.WriteHeader(http.StatusNoContent)
}

// Retranslate handles POST /admin/v1/{kind}/{id}/retranslate?force=
func (h *Handler) Retranslate(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := requireKindAndID(w, r)
	if !ok {
		return
	}
	if _, err := h.Content.Get(r.Context(), kind, id); err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}

	decisions, err := h.Trigger.Run(r.Context(), trigger.Request{
		Kind:     kind,
		EntityID: id,
		Force:    handler.ParseBoolParam(r, "force"),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}

	out := make([]DecisionResponse, 0, len(decisions))
	for _, d := range decisions {
		dr := DecisionResponse{Language: d.Language, Enqueued: d.Enqueue && d.Err == nil, Forced: d.Force, TaskID: d.TaskID}
		if d.Err != nil {
			dr.Error = d.Err.Error()
		}
		out = append(out, dr)
	}
	WriteJSON(w, http.StatusAccepted, Response{Data: out})
}

// TranslationStatus handles GET /admin/v1/{kind}/{id}/translation-status
func (h *Handler) TranslationStatus(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := requireKindAndID(w, r)
	if !ok {
		return
	}
	tasks, summary, err := h.Content.TranslationStatus(r.Context(), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err, "Entity")
		return
	}
	WriteSuccess(w, map[string]any{
		"status": summary,
		"tasks":  toTaskResponses(tasks),
	}, nil)
}

// ListTasks handles GET /admin/v1/tasks?status=&page=&per_page=
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := model.TaskStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		WriteBadRequest(w, "Invalid task status", map[string]string{"status": string(status)})
		return
	}
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 50, 200)

	tasks, err := h.Tasks.ListTasks(r.Context(), store.ListTasksParams{
		Status: status,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "tasks")
		return
	}
	WriteSuccess(w, toTaskResponses(tasks), &Meta{Page: page, PerPage: perPage})
}

// TaskStats handles GET /admin/v1/tasks/stats
func (h *Handler) TaskStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Tasks.CountTasksByStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "tasks")
		return
	}
	WriteSuccess(w, counts, nil)
}

// CacheInfo handles GET /admin/v1/cache
func (h *Handler) CacheInfo(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, h.Cache.Info(), nil)
}

// ClearCache handles DELETE /admin/v1/cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.ClearResponses(r.Context()); err != nil {
		h.writeServiceError(w, r, err, "cache")
		return
	}
	if h.Events != nil {
		_ = h.Events.LogCacheEvent(r.Context(), model.EventLevelInfo, "Response cache cleared",
			map[string]any{"user": middleware.GetAdminUser(r)})
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /admin/v1/events?level=&page=&per_page=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 50, 200)
	events, err := h.Events.ListEvents(r.Context(), r.URL.Query().Get("level"), perPage, (page-1)*perPage)
	if err != nil {
		h.writeServiceError(w, r, err, "events")
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		er := EventResponse{ID: e.ID, Level: e.Level, Category: e.Category, Message: e.Message, CreatedAt: e.CreatedAt}
		if json.Valid([]byte(e.Metadata)) {
			er.Metadata = json.RawMessage(e.Metadata)
		}
		out = append(out, er)
	}
	WriteSuccess(w, out, &Meta{Page: page, PerPage: perPage})
}

// ListJobs handles GET /admin/v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	if h.Jobs == nil {
		WriteSuccess(w, []scheduler.JobInfo{}, nil)
		return
	}
	WriteSuccess(w, h.Jobs.List(), nil)
}

// RunJob handles POST /admin/v1/jobs/{name}/run
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		WriteNotFound(w, "Scheduler is disabled")
		return
	}
	err := h.Jobs.TriggerNow(chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, "Job not found")
	case errors.Is(err, scheduler.ErrJobRunning):
		WriteError(w, http.StatusConflict, "conflict", "Job already running", nil)
	case err != nil:
		WriteError(w, http.StatusInternalServerError, "job_failed", err.Error(), nil)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) logContent(r *http.Request, message string, kind model.EntityKind, id int64) {
	if h.Events == nil {
		return
	}
	err := h.Events.LogContentEvent(r.Context(), model.EventLevelInfo, message, map[string]any{
		"kind":      kind,
		"entity_id": id,
		"user":      middleware.GetAdminUser(r),
	})
	if err != nil {
		h.Logger.Warn("failed to log content event", "error", err)
	}
}
