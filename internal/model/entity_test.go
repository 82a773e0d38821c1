// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestKindSpecsComplete(t *testing.T) {
	for _, kind := range Kinds() {
		spec := MustSpec(kind)
		if spec.Table == "" || spec.TranslationTable == "" {
			t.Errorf("%s: missing table names", kind)
		}
		if spec.Method == "" {
			t.Errorf("%s: missing method", kind)
		}
		if len(spec.CachePaths) == 0 {
			t.Errorf("%s: no cache paths", kind)
		}
		for _, f := range spec.TriggerFields {
			if !spec.HasField(f) {
				t.Errorf("%s: trigger field %q is not translatable", kind, f)
			}
		}
		got, ok := KindForMethod(spec.Method)
		if !ok || got != kind {
			t.Errorf("KindForMethod(%q) = %q, %v", spec.Method, got, ok)
		}
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("place"); err != nil {
		t.Errorf("ParseKind(place) error = %v", err)
	}
	if _, err := ParseKind("page"); err == nil {
		t.Error("ParseKind(page) expected error")
	}
}

func TestSummarizeTasks(t *testing.T) {
	task := func(s TaskStatus) TranslationTask { return TranslationTask{Status: s} }

	tests := []struct {
		name  string
		tasks []TranslationTask
		want  string
	}{
		{"no tasks", nil, SummaryNotStarted},
		{"all completed", []TranslationTask{task(TaskCompleted), task(TaskCompleted)}, SummaryComplete},
		{"one running", []TranslationTask{task(TaskCompleted), task(TaskRunning)}, SummaryInProgress},
		{"one pending", []TranslationTask{task(TaskPending)}, SummaryInProgress},
		{"failure wins", []TranslationTask{task(TaskRunning), task(TaskFailed)}, SummaryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SummarizeTasks(tt.tasks); got != tt.want {
				t.Errorf("SummarizeTasks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasTranslation(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"<p>&nbsp;</p>", false},
		{FailedTranslation("Hawaii"), false},
		{"Hawaje", true},
	}

	for _, tt := range tests {
		if got := HasTranslation(tt.value); got != tt.want {
			t.Errorf("HasTranslation(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if TaskPending.Terminal() || TaskRunning.Terminal() {
		t.Error("pending and running must not be terminal")
	}
	if !TaskCompleted.Terminal() || !TaskFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}
