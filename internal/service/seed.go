// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olegiv/folio-go/internal/model"
)

// Seed creates a small demo portfolio when the database holds no profile
// yet. Saves go through the content service, so the seeded entities are
// translated like editor writes.
func Seed(ctx context.Context, content *ContentService) error {
	users, err := content.List(ctx, model.KindUser)
	if err != nil {
		return fmt.Errorf("checking for profile: %w", err)
	}
	if len(users) > 0 {
		content.logger.Info("profile already exists, skipping seed")
		return nil
	}

	if _, err := content.Create(ctx, model.KindUser, ContentInput{
		Attributes: map[string]string{"username": "folio", "email": "owner@example.com"},
		Fields: map[string]string{
			model.FieldShortDescription: "Astrophotographer and traveller",
			model.FieldBio:              "<p>I photograph the night sky from wherever I travel.</p>",
		},
	}); err != nil {
		return fmt.Errorf("seeding profile: %w", err)
	}

	place, err := content.Create(ctx, model.KindPlace, ContentInput{
		Attributes: map[string]string{"country": "US"},
		Fields:     map[string]string{model.FieldName: "Mauna Kea"},
	})
	if err != nil {
		return fmt.Errorf("seeding place: %w", err)
	}

	if _, err := content.Create(ctx, model.KindTag, ContentInput{
		Fields: map[string]string{model.FieldName: "Deep Sky"},
	}); err != nil {
		return fmt.Errorf("seeding tag: %w", err)
	}

	if _, err := content.Create(ctx, model.KindAstroImage, ContentInput{
		Attributes: map[string]string{
			"category":  "Deep Sky",
			"image_url": "/media/orion-nebula.jpg",
			"place_id":  strconv.FormatInt(place.ID, 10),
		},
		Fields: map[string]string{
			model.FieldName:        "Orion Nebula",
			model.FieldDescription: "<p>M42 above the summit, see <a href=\"https://en.wikipedia.org/wiki/Orion_Nebula\">Orion Nebula</a>.</p>",
		},
	}); err != nil {
		return fmt.Errorf("seeding image: %w", err)
	}

	content.logger.Info("seeded demo portfolio")
	return nil
}
