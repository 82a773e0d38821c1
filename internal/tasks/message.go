// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tasks runs translation requests asynchronously: a broker carries
// messages, a pool of workers executes them through the translation service,
// and every transition is mirrored into the translation_tasks table.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/olegiv/folio-go/internal/model"
)

// TaskName is the registered name of the translation task.
const TaskName = "translation.translate_instance"

// Message is the unit of work carried by a Broker.
type Message struct {
	Name       string           `json:"name"`
	TaskID     string           `json:"task_id"`
	Kind       model.EntityKind `json:"kind"`
	EntityID   int64            `json:"entity_id"`
	Language   string           `json:"language"`
	Method     string           `json:"method"`
	Force      bool             `json:"force"`
	Retry      int              `json:"retry"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// encode serializes m for brokers that store bytes.
func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}

// decodeMessage parses a message produced by encode.
func decodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding task message: %w", err)
	}
	if m.Name != TaskName {
		return Message{}, fmt.Errorf("unknown task %q", m.Name)
	}
	return m, nil
}

// logAttrs returns the attributes used when logging m.
func (m Message) logAttrs() []any {
	return []any{
		"task_id", m.TaskID,
		"kind", m.Kind,
		"entity_id", m.EntityID,
		"language", m.Language,
		"retry", m.Retry,
	}
}
