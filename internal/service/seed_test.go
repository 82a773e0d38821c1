// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
)

func TestSeed(t *testing.T) {
	content, _, notifier := newContentService(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, content))

	for _, kind := range []model.EntityKind{model.KindUser, model.KindPlace, model.KindTag, model.KindAstroImage} {
		records, err := content.List(ctx, kind)
		require.NoError(t, err)
		assert.Len(t, records, 1, kind)
	}

	tags, err := content.List(ctx, model.KindTag)
	require.NoError(t, err)
	assert.Equal(t, "deep-sky", tags[0].Translations["en"][model.FieldSlug])

	notifier.mu.Lock()
	saved := 0
	for _, ev := range notifier.events {
		if ev.Type == hooks.EntitySaved && ev.Created {
			saved++
		}
	}
	notifier.mu.Unlock()
	assert.Equal(t, 4, saved)

	// Second run is a no-op.
	require.NoError(t, Seed(ctx, content))
	users, err := content.List(ctx, model.KindUser)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
