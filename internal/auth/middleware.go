// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/sentinel/internal/logging"
)

type contextKey string

const identityKey contextKey = "identity_id"

// Verifier validates a token string and returns its claims.
// Satisfied by *JWTManager.
type Verifier interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Middleware authenticates requests and places the verified identity id in
// the request context. The token comes from the Authorization header
// (Bearer scheme) or, for WebSocket handshakes where browsers cannot set
// headers, from the "token" query parameter.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				unauthorized(w, "missing credentials")
				return
			}

			claims, err := verifier.ValidateToken(tokenString)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("token validation failed")
				unauthorized(w, "invalid credentials")
				return
			}

			ctx := ContextWithIdentity(r.Context(), claims.IdentityID)
			ctx = logging.ContextWithIdentityID(ctx, claims.IdentityID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the request. Header wins over
// query parameter when both are present.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	//nolint:errcheck // Best-effort error body
	w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}

// ContextWithIdentity returns a context carrying the verified identity id.
func ContextWithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityKey, identityID)
}

// IdentityFromContext returns the verified identity id, or empty string when
// the request was not authenticated.
func IdentityFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(string); ok {
		return id
	}
	return ""
}
