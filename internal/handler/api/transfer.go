// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/folio-go/internal/handler"
	"github.com/olegiv/folio-go/internal/middleware"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/transfer"
)

// ContentExporter produces a content export.
type ContentExporter interface {
	Export(ctx context.Context, kinds ...model.EntityKind) (*transfer.ExportData, error)
}

// ContentImporter loads a content export.
type ContentImporter interface {
	ImportFromReader(ctx context.Context, r io.Reader, opts transfer.ImportOptions) (*transfer.ImportResult, error)
}

// parseKinds reads the comma separated kinds query parameter.
func parseKinds(r *http.Request) ([]model.EntityKind, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("kinds"))
	if raw == "" {
		return nil, nil
	}
	var kinds []model.EntityKind
	for _, part := range strings.Split(raw, ",") {
		kind, err := model.ParseKind(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Export handles GET /admin/v1/export?kinds=
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.Exporter == nil {
		WriteNotFound(w, "Export is not available")
		return
	}
	kinds, err := parseKinds(r)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	data, err := h.Exporter.Export(r.Context(), kinds...)
	if err != nil {
		h.Logger.Error("export failed", "error", err)
		WriteInternalError(w, "Export failed")
		return
	}

	filename := fmt.Sprintf("folio-export-%s.json", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	WriteJSON(w, http.StatusOK, data)
}

// Import handles POST /admin/v1/import?strategy=&dry_run=&kinds=
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if h.Importer == nil {
		WriteNotFound(w, "Import is not available")
		return
	}

	opts := transfer.ImportOptions{
		ConflictStrategy: transfer.ConflictStrategy(r.URL.Query().Get("strategy")),
		DryRun:           handler.ParseBoolParam(r, "dry_run"),
	}
	switch opts.ConflictStrategy {
	case "", transfer.ConflictSkip, transfer.ConflictOverwrite:
	default:
		WriteBadRequest(w, "Invalid strategy", map[string]string{"strategy": "must be skip or overwrite"})
		return
	}
	kinds, err := parseKinds(r)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}
	opts.Kinds = kinds

	result, err := h.Importer.ImportFromReader(r.Context(), r.Body, opts)
	switch {
	case errors.Is(err, transfer.ErrValidation):
		WriteJSON(w, http.StatusUnprocessableEntity, Response{Data: result})
		return
	case err != nil && result == nil:
		WriteBadRequest(w, err.Error(), nil)
		return
	case err != nil:
		h.Logger.Error("import failed", "error", err)
		WriteInternalError(w, "Import failed")
		return
	}

	if !opts.DryRun && h.Events != nil {
		err := h.Events.LogContentEvent(r.Context(), model.EventLevelInfo, "Content imported", map[string]any{
			"created": result.TotalCreated(),
			"updated": result.TotalUpdated(),
			"user":    middleware.GetAdminUser(r),
		})
		if err != nil {
			h.Logger.Warn("failed to log content event", "error", err)
		}
	}
	WriteSuccess(w, result, nil)
}
