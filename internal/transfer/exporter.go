// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// Exporter writes content to the export format.
type Exporter struct {
	store           *store.Queries
	defaultLanguage string
	languages       []string
	logger          *slog.Logger
}

// NewExporter creates a new exporter.
func NewExporter(queries *store.Queries, defaultLanguage string, languages []string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:           queries,
		defaultLanguage: defaultLanguage,
		languages:       languages,
		logger:          logger,
	}
}

// Export collects every entity of kinds, or of all kinds when none are given.
func (e *Exporter) Export(ctx context.Context, kinds ...model.EntityKind) (*ExportData, error) {
	if len(kinds) == 0 {
		kinds = model.Kinds()
	}

	data := &ExportData{
		Version:         ExportVersion,
		ExportedAt:      time.Now().UTC(),
		DefaultLanguage: e.defaultLanguage,
		Languages:       e.languages,
		Entities:        make(map[model.EntityKind][]ExportEntity, len(kinds)),
	}

	for _, kind := range kinds {
		entities, err := e.exportKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		data.Entities[kind] = entities
	}

	e.logger.Info("content exported", "kinds", len(kinds))
	return data, nil
}

func (e *Exporter) exportKind(ctx context.Context, kind model.EntityKind) ([]ExportEntity, error) {
	entities, err := e.store.ListEntities(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	out := make([]ExportEntity, 0, len(entities))
	for _, ent := range entities {
		rows, err := e.store.ListTranslations(ctx, kind, ent.ID)
		if err != nil {
			return nil, fmt.Errorf("listing translations of %s %d: %w", kind, ent.ID, err)
		}
		translations := make(map[string]map[string]string, len(rows))
		for _, row := range rows {
			translations[row.Language] = row.Fields
		}
		out = append(out, ExportEntity{
			ID:           ent.ID,
			Attributes:   ent.Attributes,
			Translations: translations,
			CreatedAt:    ent.CreatedAt,
			UpdatedAt:    ent.UpdatedAt,
		})
	}
	return out, nil
}

// ExportToWriter writes the export as indented JSON.
func (e *Exporter) ExportToWriter(ctx context.Context, w io.Writer, kinds ...model.EntityKind) error {
	data, err := e.Export(ctx, kinds...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
