// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/testutil"
)

func TestEventService(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db, testutil.TestLoggerSilent())
	ctx := context.Background()

	require.NoError(t, svc.LogContentEvent(ctx, model.EventLevelInfo, "Place created", map[string]any{"id": 1}))
	require.NoError(t, svc.LogTaskEvent(ctx, model.EventLevelError, "Task failed", nil))
	require.NoError(t, svc.LogCacheEvent(ctx, model.EventLevelInfo, "Cache cleared", nil))

	events, err := svc.ListEvents(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)

	errorsOnly, err := svc.ListEvents(ctx, model.EventLevelError, 10, 0)
	require.NoError(t, err)
	require.Len(t, errorsOnly, 1)
	assert.Equal(t, model.EventCategoryTask, errorsOnly[0].Category)
	assert.Equal(t, "{}", errorsOnly[0].Metadata)

	var created model.Event
	for _, e := range events {
		if e.Message == "Place created" {
			created = e
		}
	}
	assert.JSONEq(t, `{"id":1}`, created.Metadata)

	n, err := svc.DeleteOldEvents(ctx, -time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
