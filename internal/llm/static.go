// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package llm

import "context"

// Static echoes the user message back. Used in development when no model
// is available; every "translation" equals its source.
type Static struct{}

// Name implements Provider.
func (Static) Name() string { return "static" }

// Ask implements Provider.
func (Static) Ask(ctx context.Context, _, userMessage string, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return userMessage, nil
}
