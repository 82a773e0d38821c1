// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/folio-go/internal/testutil"
)

func TestHealth(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	healthy := NewHealthHandler(db, "test", map[string]Pinger{
		"cache": PingFunc(func(context.Context) error { return nil }),
	})
	w := httptest.NewRecorder()
	healthy.Health(w, httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "test", status.Version)
	assert.Contains(t, status.Checks, "database")
	assert.Contains(t, status.Checks, "cache")
	require.NotNil(t, status.System)

	degraded := NewHealthHandler(db, "test", map[string]Pinger{
		"broker": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	w = httptest.NewRecorder()
	degraded.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "connection refused", status.Checks["broker"].Message)
}

func TestLiveness(t *testing.T) {
	w := httptest.NewRecorder()
	(&HealthHandler{}).Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		id      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", tt.id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		got, err := ParseIDParam(req)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidID, "id %q", tt.id)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParsePaginationParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=500&force=true", nil)
	assert.Equal(t, 3, ParsePageParam(req))
	assert.Equal(t, 100, ParsePerPageParam(req, 50, 100))
	assert.True(t, ParseBoolParam(req, "force"))

	req = httptest.NewRequest(http.MethodGet, "/?page=-2&per_page=x", nil)
	assert.Equal(t, 1, ParsePageParam(req))
	assert.Equal(t, 50, ParsePerPageParam(req, 50, 100))
	assert.False(t, ParseBoolParam(req, "force"))
}
