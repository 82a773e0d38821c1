// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/hooks"
	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
)

var testLanguages = []string{"en", "pl", "de"}

type testSetup struct {
	DB      *sql.DB
	Queries *store.Queries
	Ctx     context.Context
	Now     time.Time
}

func setupTest(t *testing.T) *testSetup {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	return &testSetup{
		DB:      db,
		Queries: store.New(db),
		Ctx:     context.Background(),
		Now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// seedPortfolio stores a place and an astro image taken there, both with
// English and Polish rows.
func (s *testSetup) seedPortfolio(t *testing.T) (place, image model.Entity) {
	t.Helper()

	place, err := s.Queries.CreateEntity(s.Ctx, model.KindPlace, map[string]string{"country": "US"}, s.Now)
	require.NoError(t, err)
	require.NoError(t, s.Queries.UpsertTranslation(s.Ctx, model.KindPlace, place.ID, "en",
		map[string]string{model.FieldName: "Mauna Kea"}, s.Now))
	require.NoError(t, s.Queries.UpsertTranslation(s.Ctx, model.KindPlace, place.ID, "pl",
		map[string]string{model.FieldName: "Mauna Kea"}, s.Now))

	image, err = s.Queries.CreateEntity(s.Ctx, model.KindAstroImage, map[string]string{
		"image_url": "https://cdn.example.com/m42.jpg",
		"category":  "Deep Sky",
		"place_id":  itoa(place.ID),
	}, s.Now)
	require.NoError(t, err)
	require.NoError(t, s.Queries.UpsertTranslation(s.Ctx, model.KindAstroImage, image.ID, "en",
		map[string]string{model.FieldName: "Orion Nebula", model.FieldDescription: "<p>M42</p>"}, s.Now))
	require.NoError(t, s.Queries.UpsertTranslation(s.Ctx, model.KindAstroImage, image.ID, "pl",
		map[string]string{model.FieldName: "Mgławica Oriona", model.FieldDescription: "<p>M42</p>"}, s.Now))

	return place, image
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []hooks.Event
}

func (n *recordingNotifier) Fire(_ context.Context, ev hooks.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []hooks.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]hooks.Event(nil), n.events...)
}
