// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/olegiv/folio-go/internal/util"
)

// TaskStatus is the state of a translation task.
type TaskStatus string

// Task statuses.
const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// Terminal reports whether no further transition is expected without a new enqueue.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskRunning, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// TranslationTask tracks the most recent translation job for one
// (entity, language) pair. At most one row exists per pair.
type TranslationTask struct {
	ID           int64
	EntityType   EntityKind
	EntityID     int64
	LanguageCode string
	MethodName   string
	TaskID       string
	Status       TaskStatus
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Aggregate translation states of an entity across languages.
const (
	SummaryNotStarted = "Not Started"
	SummaryInProgress = "In Progress"
	SummaryComplete   = "Complete"
	SummaryFailed     = "Failed"
)

// SummarizeTasks folds the per-language tasks of one entity into a
// single state. Any failure wins, then any pending or running task.
func SummarizeTasks(tasks []TranslationTask) string {
	if len(tasks) == 0 {
		return SummaryNotStarted
	}
	inProgress := false
	for _, t := range tasks {
		switch t.Status {
		case TaskFailed:
			return SummaryFailed
		case TaskPending, TaskRunning:
			inProgress = true
		}
	}
	if inProgress {
		return SummaryInProgress
	}
	return SummaryComplete
}

// FailedTranslationPrefix marks a field value written after the LLM could
// not translate it. The rest of the value is the untranslated source.
const FailedTranslationPrefix = "[TRANSLATION FAILED] "

// FailedTranslation returns the sentinel value stored for source.
func FailedTranslation(source string) string {
	return FailedTranslationPrefix + source
}

// IsFailedTranslation reports whether v is a failure sentinel.
func IsFailedTranslation(v string) bool {
	return strings.HasPrefix(v, FailedTranslationPrefix)
}

// HasTranslation reports whether v holds usable translated text. Empty
// values and failure sentinels both count as missing.
func HasTranslation(v string) bool {
	return !util.IsEmptyText(v) && !IsFailedTranslation(v)
}
