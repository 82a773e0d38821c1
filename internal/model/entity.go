// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"slices"
	"time"
)

// EntityKind identifies one of the translatable content families.
type EntityKind string

// Entity kinds.
const (
	KindAstroImage       EntityKind = "astro_image"
	KindMainPageLocation EntityKind = "main_page_location"
	KindPlace            EntityKind = "place"
	KindTag              EntityKind = "tag"
	KindUser             EntityKind = "user"
	KindProjectImage     EntityKind = "project_image"
)

// Translatable field names.
const (
	FieldName              = "name"
	FieldDescription       = "description"
	FieldExposureDetails   = "exposure_details"
	FieldProcessingDetails = "processing_details"
	FieldHighlightName     = "highlight_name"
	FieldStory             = "story"
	FieldSlug              = "slug"
	FieldShortDescription  = "short_description"
	FieldBio               = "bio"
)

// Handler selects how a field's source text is translated.
type Handler string

// Field handlers.
const (
	HandlerPlain Handler = "plain"
	HandlerHTML  Handler = "html"
	HandlerPlace Handler = "place"
	HandlerTag   Handler = "tag"
	// HandlerSlug marks a field derived from the name, never sent to the LLM.
	HandlerSlug Handler = "slug"
)

// FieldSpec describes one translatable column.
type FieldSpec struct {
	Name    string
	Handler Handler
}

// KindSpec is the descriptor every layer dispatches on: storage tables,
// translatable fields, the service method a task invokes, and the public
// API paths whose cached responses depend on the kind.
type KindSpec struct {
	Kind             EntityKind
	Table            string
	TranslationTable string
	Attributes       []string
	Fields           []FieldSpec
	TriggerFields    []string
	Method           string
	ForceOnSave      bool
	CachePaths       []string
}

// Service method names carried by translation tasks.
const (
	MethodTranslateAstroImage       = "translate_astro_image"
	MethodTranslateMainPageLocation = "translate_main_page_location"
	MethodTranslatePlace            = "translate_place"
	MethodTranslateTag              = "translate_parler_tag"
	MethodTranslateUser             = "translate_user"
	MethodTranslateProjectImage     = "translate_project_image"
)

var kindSpecs = []KindSpec{
	{
		Kind:             KindAstroImage,
		Table:            "astro_images",
		TranslationTable: "astro_image_translations",
		Attributes:       []string{"image_url", "category", "place_id", "captured_at"},
		Fields: []FieldSpec{
			{FieldName, HandlerPlain},
			{FieldDescription, HandlerHTML},
			{FieldExposureDetails, HandlerPlain},
			{FieldProcessingDetails, HandlerPlain},
		},
		TriggerFields: []string{FieldName, FieldDescription, FieldExposureDetails, FieldProcessingDetails},
		Method:        MethodTranslateAstroImage,
		CachePaths:    []string{"/v1/image", "/v1/travel-highlights"},
	},
	{
		Kind:             KindMainPageLocation,
		Table:            "main_page_locations",
		TranslationTable: "main_page_location_translations",
		Attributes:       []string{"place_id", "image_url"},
		Fields: []FieldSpec{
			{FieldHighlightName, HandlerPlain},
			{FieldStory, HandlerHTML},
		},
		TriggerFields: []string{FieldHighlightName, FieldStory},
		Method:        MethodTranslateMainPageLocation,
		CachePaths:    []string{"/v1/travel-highlights"},
	},
	{
		Kind:             KindPlace,
		Table:            "places",
		TranslationTable: "place_translations",
		Attributes:       []string{"country"},
		Fields: []FieldSpec{
			{FieldName, HandlerPlace},
		},
		TriggerFields: []string{FieldName},
		Method:        MethodTranslatePlace,
		CachePaths:    []string{"/v1/places", "/v1/image", "/v1/travel-highlights"},
	},
	{
		Kind:             KindTag,
		Table:            "tags",
		TranslationTable: "tag_translations",
		Fields: []FieldSpec{
			{FieldName, HandlerTag},
			{FieldSlug, HandlerSlug},
		},
		TriggerFields: []string{FieldName, FieldSlug},
		Method:        MethodTranslateTag,
		ForceOnSave:   true,
		CachePaths:    []string{"/v1/tags", "/v1/image"},
	},
	{
		Kind:             KindUser,
		Table:            "users",
		TranslationTable: "user_translations",
		Attributes:       []string{"username", "email", "avatar_url"},
		Fields: []FieldSpec{
			{FieldShortDescription, HandlerPlain},
			{FieldBio, HandlerHTML},
		},
		TriggerFields: []string{FieldShortDescription, FieldBio},
		Method:        MethodTranslateUser,
		CachePaths:    []string{"/v1/profile"},
	},
	{
		Kind:             KindProjectImage,
		Table:            "project_images",
		TranslationTable: "project_image_translations",
		Attributes:       []string{"project", "image_url"},
		Fields: []FieldSpec{
			{FieldName, HandlerPlain},
			{FieldDescription, HandlerHTML},
		},
		TriggerFields: []string{FieldName, FieldDescription},
		Method:        MethodTranslateProjectImage,
		CachePaths:    []string{"/v1/projects"},
	},
}

// Kinds returns every registered entity kind in declaration order.
func Kinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(kindSpecs))
	for _, s := range kindSpecs {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

// Spec returns the descriptor for kind.
func Spec(kind EntityKind) (KindSpec, bool) {
	for _, s := range kindSpecs {
		if s.Kind == kind {
			return s, true
		}
	}
	return KindSpec{}, false
}

// MustSpec is like Spec but panics on an unknown kind.
func MustSpec(kind EntityKind) KindSpec {
	s, ok := Spec(kind)
	if !ok {
		panic(fmt.Sprintf("model: unknown entity kind %q", kind))
	}
	return s
}

// ParseKind validates a kind received from outside (URL, task payload).
func ParseKind(s string) (EntityKind, error) {
	if _, ok := Spec(EntityKind(s)); !ok {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return EntityKind(s), nil
}

// KindForMethod returns the kind whose service method is method.
func KindForMethod(method string) (EntityKind, bool) {
	for _, s := range kindSpecs {
		if s.Method == method {
			return s.Kind, true
		}
	}
	return "", false
}

// HasField reports whether name is a translatable column of the kind.
func (s KindSpec) HasField(name string) bool {
	return slices.ContainsFunc(s.Fields, func(f FieldSpec) bool { return f.Name == name })
}

// HasAttribute reports whether name is a non-translatable column of the kind.
func (s KindSpec) HasAttribute(name string) bool {
	return slices.Contains(s.Attributes, name)
}

// FieldNames returns the translatable column names in declaration order.
func (s KindSpec) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Entity is a content record with its non-translatable attributes.
type Entity struct {
	Kind       EntityKind
	ID         int64
	Attributes map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Translation holds the translatable fields of an entity for one language.
// The row for the default language is the source of truth.
type Translation struct {
	EntityID  int64
	Language  string
	Fields    map[string]string
	UpdatedAt time.Time
}

// Field returns the value of name, or "" when unset.
func (t Translation) Field(name string) string {
	if t.Fields == nil {
		return ""
	}
	return t.Fields[name]
}
