// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook notifies external endpoints, such as a statically built
// frontend, that public content changed.
package webhook

import (
	"time"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
)

// Event types sent to endpoints.
const (
	EventContentSaved      = "content.saved"
	EventContentDeleted    = "content.deleted"
	EventContentTranslated = "content.translated"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      ContentEventData `json:"data"`
}

// ContentEventData identifies the changed entity and the public API paths
// whose responses are now stale.
type ContentEventData struct {
	Kind          model.EntityKind `json:"kind"`
	ID            int64            `json:"id"`
	Language      string           `json:"language,omitempty"`
	ChangedFields []string         `json:"changed_fields,omitempty"`
	Paths         []string         `json:"paths"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data ContentEventData) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// FromHook maps a registry event onto a webhook event. ok is false for
// event types that are not forwarded.
func FromHook(ev hooks.Event) (*Event, bool) {
	var eventType string
	switch ev.Type {
	case hooks.EntitySaved:
		eventType = EventContentSaved
	case hooks.EntityDeleted:
		eventType = EventContentDeleted
	case hooks.EntityTranslated:
		eventType = EventContentTranslated
	default:
		return nil, false
	}

	data := ContentEventData{
		Kind:          ev.Kind,
		ID:            ev.EntityID,
		Language:      ev.Language,
		ChangedFields: ev.ChangedFields,
	}
	if spec, found := model.Spec(ev.Kind); found {
		data.Paths = spec.CachePaths
	}
	return NewEvent(eventType, data), true
}
