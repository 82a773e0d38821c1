// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/folio-go/internal/auth"
)

// ContextKeyAdminUser holds the authenticated admin user name.
const ContextKeyAdminUser ContextKey = "admin_user"

// AdminAuth guards the admin API with HTTP basic auth against creds.
// Failed attempts count towards lp's per-user lockout and per-IP limit;
// lp may be nil.
func AdminAuth(creds auth.Credentials, lp *LoginProtection, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !creds.Configured() {
				WriteAPIError(w, http.StatusServiceUnavailable, "admin_disabled", "Admin API is not configured", nil)
				return
			}

			user, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			if lp != nil {
				if locked, remaining := lp.IsLocked(user); locked {
					w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
					WriteAPIError(w, http.StatusTooManyRequests, "locked", "Too many failed attempts", nil)
					return
				}
			}

			if !creds.Verify(user, password) {
				ip := GetClientIP(r)
				logger.Warn("admin authentication failed", "user", user, "ip", ip)
				if lp != nil {
					lp.RecordFailedAttempt(user)
					if !lp.CheckIPRateLimit(ip) {
						WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many failed attempts", nil)
						return
					}
				}
				unauthorized(w)
				return
			}

			if lp != nil {
				lp.RecordSuccessfulLogin(user)
			}
			ctx := context.WithValue(r.Context(), ContextKeyAdminUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminUser returns the authenticated admin user name, or "".
func GetAdminUser(r *http.Request) string {
	user, _ := r.Context().Value(ContextKeyAdminUser).(string)
	return user
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="folio admin", charset="UTF-8"`)
	WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
}
