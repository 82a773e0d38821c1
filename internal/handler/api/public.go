// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/middleware"
)

// ListImages handles GET /v1/image
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Public.ListImages(r.Context(), middleware.GetLanguage(r), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeServiceError(w, r, err, "images")
		return
	}
	WriteSuccess(w, images, &Meta{Total: int64(len(images))})
}

// GetImage handles GET /v1/image/{id}
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid image ID", nil)
		return
	}
	image, err := h.Public.GetImage(r.Context(), middleware.GetLanguage(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Image")
		return
	}
	WriteSuccess(w, image, nil)
}

// ListTags handles GET /v1/tags
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Public.ListTags(r.Context(), middleware.GetLanguage(r))
	if err != nil {
		h.writeServiceError(w, r, err, "tags")
		return
	}
	WriteSuccess(w, tags, &Meta{Total: int64(len(tags))})
}

// ListPlaces handles GET /v1/places
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.Public.ListPlaces(r.Context(), middleware.GetLanguage(r))
	if err != nil {
		h.writeServiceError(w, r, err, "places")
		return
	}
	WriteSuccess(w, places, &Meta{Total: int64(len(places))})
}

// TravelHighlights handles GET /v1/travel-highlights
func (h *Handler) TravelHighlights(w http.ResponseWriter, r *http.Request) {
	highlights, err := h.Public.TravelHighlights(r.Context(), middleware.GetLanguage(r))
	if err != nil {
		h.writeServiceError(w, r, err, "travel highlights")
		return
	}
	WriteSuccess(w, highlights, &Meta{Total: int64(len(highlights))})
}

// Profile handles GET /v1/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Public.Profile(r.Context(), middleware.GetLanguage(r))
	if err != nil {
		h.writeServiceError(w, r, err, "Profile")
		return
	}
	WriteSuccess(w, profile, nil)
}

// ProjectImages handles GET /v1/projects/images
func (h *Handler) ProjectImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Public.ProjectImages(r.Context(), middleware.GetLanguage(r), r.URL.Query().Get("project"))
	if err != nil {
		h.writeServiceError(w, r, err, "project images")
		return
	}
	WriteSuccess(w, images, &Meta{Total: int64(len(images))})
}
