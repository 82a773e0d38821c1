// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/folio-go/internal/model"
)

var (
	// ErrUnknownMethod is returned by Dispatch for a method name that no
	// entity kind declares.
	ErrUnknownMethod = errors.New("translation: unknown method")
	// ErrUnsupportedLanguage is returned for a language outside the configured set.
	ErrUnsupportedLanguage = errors.New("translation: unsupported language")
)

// FieldError records why one field could not be translated.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors is returned when at least one field of an (entity, language)
// pair fell back to the failure sentinel. The other fields were still
// written. errors.As and llm.IsTransient see through it to each cause.
type FieldErrors struct {
	Kind     model.EntityKind
	EntityID int64
	Language string
	Fields   []*FieldError
}

func (e *FieldErrors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("translating %s %d into %s: %s", e.Kind, e.EntityID, e.Language, strings.Join(msgs, "; "))
}

func (e *FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f)
	}
	return errs
}
