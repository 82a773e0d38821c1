// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Sampling temperatures. The literal pass is deterministic; the editing
// pass is allowed a little freedom to smooth phrasing.
const (
	literalTemperature = 0
	editTemperature    = 0.2
	singleTemperature  = 0
)

const preserveMarkup = "Keep every HTML tag, attribute and placeholder of the form [[L0]], [[L1]] exactly as it appears, in the same position. "

func literalPrompt(source, target string) string {
	return fmt.Sprintf("You are a professional translator. Translate the user's text from %s into %s. "+
		"Translate literally and completely, sentence by sentence, without adding, omitting or explaining anything. "+
		preserveMarkup+
		"Reply with the translation only.", source, target)
}

func editPrompt(target string) string {
	return fmt.Sprintf("You are a native %s editor. The user's text is a literal machine translation into %s. "+
		"Rewrite it so it reads naturally to a native speaker while keeping the exact meaning, names, numbers and units. "+
		preserveMarkup+
		"Reply with the edited text only.", target, target)
}

func placePrompt(source, target, country string) string {
	hint := ""
	if country != "" {
		hint = fmt.Sprintf(" The place is located in %s.", country)
	}
	return fmt.Sprintf("You translate geographic place names from %s into %s.%s "+
		"Use the established exonym in %s if one exists; otherwise keep the original name. "+
		"Reply with the place name only, without quotes or explanation.", source, target, hint, target)
}

func tagPrompt(source, target string) string {
	return fmt.Sprintf("You translate short category labels for an astrophotography and travel portfolio from %s into %s. "+
		"Keep astronomical catalogue designations (M42, NGC 7000) and proper nouns unchanged. "+
		"Reply with the label only, without quotes or explanation.", source, target)
}

// languageName renders a language code as an English name for prompts,
// falling back to the code itself.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Languages(language.English).Name(tag); name != "" {
		return name
	}
	return code
}
