// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transfer exports portfolio content with all of its translations
// to JSON and imports it back.
package transfer

import (
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// ExportVersion is the current version of the export format.
const ExportVersion = "1.0"

// ExportData represents the complete export structure.
type ExportData struct {
	Version         string                              `json:"version"`
	ExportedAt      time.Time                           `json:"exported_at"`
	DefaultLanguage string                              `json:"default_language"`
	Languages       []string                            `json:"languages"`
	Entities        map[model.EntityKind][]ExportEntity `json:"entities"`
}

// ExportEntity is one entity with its translation rows keyed by language.
type ExportEntity struct {
	ID           int64                        `json:"id"`
	Attributes   map[string]string            `json:"attributes,omitempty"`
	Translations map[string]map[string]string `json:"translations,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// ConflictStrategy decides what happens to an entity whose ID already exists.
type ConflictStrategy string

// Conflict strategies.
const (
	ConflictSkip      ConflictStrategy = "skip"
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// ImportOptions controls an import.
type ImportOptions struct {
	ConflictStrategy ConflictStrategy
	// DryRun validates and counts without writing.
	DryRun bool
	// Kinds limits the import to these kinds. Empty imports all.
	Kinds []model.EntityKind
}

// ImportError describes one rejected item.
type ImportError struct {
	Entity  string `json:"entity"`
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}

// ImportResult counts what an import did, or would do on a dry run.
type ImportResult struct {
	DryRun  bool           `json:"dry_run"`
	Created map[string]int `json:"created"`
	Updated map[string]int `json:"updated"`
	Skipped map[string]int `json:"skipped"`
	Errors  []ImportError  `json:"errors,omitempty"`
}

// NewImportResult creates an empty result.
func NewImportResult(dryRun bool) *ImportResult {
	return &ImportResult{
		DryRun:  dryRun,
		Created: make(map[string]int),
		Updated: make(map[string]int),
		Skipped: make(map[string]int),
	}
}

// IncrementCreated increments the created count for an entity kind.
func (r *ImportResult) IncrementCreated(entity string) { r.Created[entity]++ }

// IncrementUpdated increments the updated count for an entity kind.
func (r *ImportResult) IncrementUpdated(entity string) { r.Updated[entity]++ }

// IncrementSkipped increments the skipped count for an entity kind.
func (r *ImportResult) IncrementSkipped(entity string) { r.Skipped[entity]++ }

// AddError records a rejected item.
func (r *ImportResult) AddError(entity string, id int64, message string) {
	r.Errors = append(r.Errors, ImportError{Entity: entity, ID: id, Message: message})
}

// TotalCreated returns the number of created entities across kinds.
func (r *ImportResult) TotalCreated() int { return sum(r.Created) }

// TotalUpdated returns the number of updated entities across kinds.
func (r *ImportResult) TotalUpdated() int { return sum(r.Updated) }

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
