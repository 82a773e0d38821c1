// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/testutil"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestExportEmptyDatabase(t *testing.T) {
	s := setupTest(t)
	exp := NewExporter(s.Queries, "en", testLanguages, testutil.TestLoggerSilent())

	data, err := exp.Export(s.Ctx)
	require.NoError(t, err)

	assert.Equal(t, ExportVersion, data.Version)
	assert.Equal(t, "en", data.DefaultLanguage)
	assert.Equal(t, testLanguages, data.Languages)
	assert.Len(t, data.Entities, len(model.Kinds()))
	for kind, entities := range data.Entities {
		assert.Empty(t, entities, kind)
	}
}

func TestExportWithTranslations(t *testing.T) {
	s := setupTest(t)
	place, image := s.seedPortfolio(t)
	exp := NewExporter(s.Queries, "en", testLanguages, testutil.TestLoggerSilent())

	data, err := exp.Export(s.Ctx)
	require.NoError(t, err)

	require.Len(t, data.Entities[model.KindPlace], 1)
	assert.Equal(t, place.ID, data.Entities[model.KindPlace][0].ID)
	assert.Equal(t, "US", data.Entities[model.KindPlace][0].Attributes["country"])

	require.Len(t, data.Entities[model.KindAstroImage], 1)
	got := data.Entities[model.KindAstroImage][0]
	assert.Equal(t, image.ID, got.ID)
	assert.Equal(t, itoa(place.ID), got.Attributes["place_id"])
	assert.Equal(t, "Orion Nebula", got.Translations["en"][model.FieldName])
	assert.Equal(t, "Mgławica Oriona", got.Translations["pl"][model.FieldName])
	assert.NotContains(t, got.Translations, "de")
}

func TestExportSelectedKinds(t *testing.T) {
	s := setupTest(t)
	s.seedPortfolio(t)
	exp := NewExporter(s.Queries, "en", testLanguages, testutil.TestLoggerSilent())

	data, err := exp.Export(s.Ctx, model.KindPlace)
	require.NoError(t, err)

	assert.Len(t, data.Entities, 1)
	assert.Len(t, data.Entities[model.KindPlace], 1)
}

func TestExportToWriter(t *testing.T) {
	s := setupTest(t)
	s.seedPortfolio(t)
	exp := NewExporter(s.Queries, "en", testLanguages, testutil.TestLoggerSilent())

	var buf bytes.Buffer
	require.NoError(t, exp.ExportToWriter(s.Ctx, &buf))

	var decoded ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, ExportVersion, decoded.Version)
	assert.Len(t, decoded.Entities[model.KindAstroImage], 1)
	assert.Contains(t, buf.String(), "\n  \"version\"")
}
