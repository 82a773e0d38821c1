// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"

	"github.com/olegiv/folio-go/internal/model"
	"github.com/olegiv/folio-go/internal/store"
)

// PlaceView is a localized place.
type PlaceView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// ImageView is a localized astrophotography image.
type ImageView struct {
	ID                int64      `json:"id"`
	ImageURL          string     `json:"image_url"`
	Category          string     `json:"category"`
	CapturedAt        string     `json:"captured_at,omitempty"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	ExposureDetails   string     `json:"exposure_details"`
	ProcessingDetails string     `json:"processing_details"`
	Place             *PlaceView `json:"place,omitempty"`
}

// TagView is a localized tag.
type TagView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HighlightView is a localized main page location.
type HighlightView struct {
	ID            int64      `json:"id"`
	HighlightName string     `json:"highlight_name"`
	Story         string     `json:"story"`
	ImageURL      string     `json:"image_url"`
	Place         *PlaceView `json:"place,omitempty"`
}

// ProfileView is the localized site owner profile.
type ProfileView struct {
	Username         string `json:"username"`
	AvatarURL        string `json:"avatar_url,omitempty"`
	ShortDescription string `json:"short_description"`
	Bio              string `json:"bio"`
}

// ProjectImageView is a localized project image.
type ProjectImageView struct {
	ID          int64  `json:"id"`
	Project     string `json:"project"`
	ImageURL    string `json:"image_url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PublicService builds the read model served by the public API. Every
// field is read from the requested language and falls back to the default
// language where the translation is empty or a failure sentinel.
type PublicService struct {
	queries         *store.Queries
	defaultLanguage string
	logger          *slog.Logger
}

// NewPublicService creates a public read service.
func NewPublicService(db *sql.DB, defaultLanguage string, logger *slog.Logger) *PublicService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublicService{queries: store.New(db), defaultLanguage: defaultLanguage, logger: logger}
}

type localizedEntity struct {
	model.Entity
	fields map[string]string
}

func (s *PublicService) localized(ctx context.Context, kind model.EntityKind, lang string) ([]localizedEntity, error) {
	entities, err := s.queries.ListEntities(ctx, kind)
	if err != nil {
		return nil, err
	}
	sources, err := s.queries.ListTranslationsByLanguage(ctx, kind, s.defaultLanguage)
	if err != nil {
		return nil, err
	}
	targets := sources
	if lang != "" && lang != s.defaultLanguage {
		if targets, err = s.queries.ListTranslationsByLanguage(ctx, kind, lang); err != nil {
			return nil, err
		}
	}

	spec := model.MustSpec(kind)
	items := make([]localizedEntity, 0, len(entities))
	for _, e := range entities {
		items = append(items, localizedEntity{Entity: e, fields: merge(spec, sources[e.ID], targets[e.ID])})
	}
	return items, nil
}

func merge(spec model.KindSpec, source, target model.Translation) map[string]string {
	fields := make(map[string]string, len(spec.Fields))
	for _, name := range spec.FieldNames() {
		if v := target.Field(name); model.HasTranslation(v) {
			fields[name] = v
		} else {
			fields[name] = source.Field(name)
		}
	}
	return fields
}

func (s *PublicService) placeIndex(ctx context.Context, lang string) (map[string]*PlaceView, error) {
	places, err := s.localized(ctx, model.KindPlace, lang)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*PlaceView, len(places))
	for _, p := range places {
		index[strconv.FormatInt(p.ID, 10)] = placeView(p)
	}
	return index, nil
}

func placeView(p localizedEntity) *PlaceView {
	return &PlaceView{ID: p.ID, Name: p.fields[model.FieldName], Country: p.Attributes["country"]}
}

// ListPlaces returns all places.
func (s *PublicService) ListPlaces(ctx context.Context, lang string) ([]PlaceView, error) {
	places, err := s.localized(ctx, model.KindPlace, lang)
	if err != nil {
		return nil, err
	}
	views := make([]PlaceView, 0, len(places))
	for _, p := range places {
		views = append(views, *placeView(p))
	}
	return views, nil
}

// ListImages returns astro images, optionally limited to one category.
func (s *PublicService) ListImages(ctx context.Context, lang, category string) ([]ImageView, error) {
	images, err := s.localized(ctx, model.KindAstroImage, lang)
	if err != nil {
		return nil, err
	}
	places, err := s.placeIndex(ctx, lang)
	if err != nil {
		return nil, err
	}

	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		if category != "" && img.Attributes["category"] != category {
			continue
		}
		views = append(views, imageView(img, places))
	}
	return views, nil
}

// GetImage returns one astro image or store.ErrNotFound.
func (s *PublicService) GetImage(ctx context.Context, lang string, id int64) (ImageView, error) {
	images, err := s.ListImages(ctx, lang, "")
	if err != nil {
		return ImageView{}, err
	}
	for _, img := range images {
		if img.ID == id {
			return img, nil
		}
	}
	return ImageView{}, store.ErrNotFound
}

func imageView(img localizedEntity, places map[string]*PlaceView) ImageView {
	return ImageView{
		ID:                img.ID,
		ImageURL:          img.Attributes["image_url"],
		Category:          img.Attributes["category"],
		CapturedAt:        img.Attributes["captured_at"],
		Name:              img.fields[model.FieldName],
		Description:       img.fields[model.FieldDescription],
		ExposureDetails:   img.fields[model.FieldExposureDetails],
		ProcessingDetails: img.fields[model.FieldProcessingDetails],
		Place:             places[img.Attributes["place_id"]],
	}
}

// ListTags returns all tags with their localized slugs.
func (s *PublicService) ListTags(ctx context.Context, lang string) ([]TagView, error) {
	tags, err := s.localized(ctx, model.KindTag, lang)
	if err != nil {
		return nil, err
	}
	views := make([]TagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, TagView{ID: t.ID, Name: t.fields[model.FieldName], Slug: t.fields[model.FieldSlug]})
	}
	return views, nil
}

// TravelHighlights returns the main page locations with their places.
func (s *PublicService) TravelHighlights(ctx context.Context, lang string) ([]HighlightView, error) {
	locations, err := s.localized(ctx, model.KindMainPageLocation, lang)
	if err != nil {
		return nil, err
	}
	places, err := s.placeIndex(ctx, lang)
	if err != nil {
		return nil, err
	}

	views := make([]HighlightView, 0, len(locations))
	for _, l := range locations {
		views = append(views, HighlightView{
			ID:            l.ID,
			HighlightName: l.fields[model.FieldHighlightName],
			Story:         l.fields[model.FieldStory],
			ImageURL:      l.Attributes["image_url"],
			Place:         places[l.Attributes["place_id"]],
		})
	}
	return views, nil
}

// Profile returns the first user, or store.ErrNotFound when none exists.
func (s *PublicService) Profile(ctx context.Context, lang string) (ProfileView, error) {
	users, err := s.localized(ctx, model.KindUser, lang)
	if err != nil {
		return ProfileView{}, err
	}
	if len(users) == 0 {
		return ProfileView{}, store.ErrNotFound
	}
	u := users[0]
	return ProfileView{
		Username:         u.Attributes["username"],
		AvatarURL:        u.Attributes["avatar_url"],
		ShortDescription: u.fields[model.FieldShortDescription],
		Bio:              u.fields[model.FieldBio],
	}, nil
}

// ProjectImages returns project images, optionally for a single project.
func (s *PublicService) ProjectImages(ctx context.Context, lang, project string) ([]ProjectImageView, error) {
	images, err := s.localized(ctx, model.KindProjectImage, lang)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectImageView, 0, len(images))
	for _, img := range images {
		if project != "" && img.Attributes["project"] != project {
			continue
		}
		views = append(views, ProjectImageView{
			ID:          img.ID,
			Project:     img.Attributes["project"],
			ImageURL:    img.Attributes["image_url"],
			Name:        img.fields[model.FieldName],
			Description: img.fields[model.FieldDescription],
		})
	}
	return views, nil
}
