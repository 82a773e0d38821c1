// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Route paths
const (
	RouteImages           = "/image"
	RouteImagesID         = "/image/{id}"
	RouteTags             = "/tags"
	RoutePlaces           = "/places"
	RouteTravelHighlights = "/travel-highlights"
	RouteProfile          = "/profile"
	RouteProjectImages    = "/projects/images"

	RouteKind              = "/{kind}"
	RouteKindID            = "/{kind}/{id}"
	RouteRetranslate       = "/{kind}/{id}/retranslate"
	RouteTranslationStatus = "/{kind}/{id}/translation-status"
)

// Routes configures the router returned by NewRouter.
type Routes struct {
	// Language resolves the request language into the context.
	Language func(http.Handler) http.Handler
	// Cache wraps the public read handlers. Nil disables response caching.
	Cache func(http.Handler) http.Handler
	// AdminAuth guards the admin API.
	AdminAuth func(http.Handler) http.Handler
	// RateLimit applies to both surfaces. Nil disables it.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter mounts the public API at /v1 and the admin API at /admin/v1.
func NewRouter(h *Handler, routes Routes) chi.Router {
	r := chi.NewRouter()
	if routes.RateLimit != nil {
		r.Use(routes.RateLimit)
	}

	r.Route("/v1", func(r chi.Router) {
		if routes.Language != nil {
			r.Use(routes.Language)
		}
		if routes.Cache != nil {
			r.Use(routes.Cache)
		}
		r.Get(RouteImages, h.ListImages)
		r.Get(RouteImagesID, h.GetImage)
		r.Get(RouteTags, h.ListTags)
		r.Get(RoutePlaces, h.ListPlaces)
		r.Get(RouteTravelHighlights, h.TravelHighlights)
		r.Get(RouteProfile, h.Profile)
		r.Get(RouteProjectImages, h.ProjectImages)
	})

	r.Route("/admin/v1", func(r chi.Router) {
		if routes.AdminAuth != nil {
			r.Use(routes.AdminAuth)
		}

		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/stats", h.TaskStats)
		r.Get("/cache", h.CacheInfo)
		r.Delete("/cache", h.ClearCache)
		r.Get("/events", h.ListEvents)
		r.Get("/jobs", h.ListJobs)
		r.Post("/jobs/{name}/run", h.RunJob)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)

		r.Get(RouteKind, h.ListEntities)
		r.Post(RouteKind, h.CreateEntity)
		r.Get(RouteKindID, h.GetEntity)
		r.Put(RouteKindID, h.UpdateEntity)
		r.Patch(RouteKindID, h.UpdateEntity)
		r.Delete(RouteKindID, h.DeleteEntity)
		r.Post(RouteRetranslate, h.Retranslate)
		r.Get(RouteTranslationStatus, h.TranslationStatus)
	})

	return r
}
