// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/sentinel/internal/auth"
)

type fakeVerifier struct {
	identityID string
	err        error
}

func (f *fakeVerifier) ValidateToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Claims{IdentityID: f.identityID}, nil
}

func newTestRouter(t *testing.T, verifier auth.Verifier) http.Handler {
	t.Helper()
	f := newHandlerFixture(t)
	f.handler.cfg.Security.RateLimitDisabled = true
	return NewRouter(f.handler.cfg, f.handler, verifier)
}

func TestRouter_HealthIsUnauthenticated(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{err: auth.ErrInvalidToken})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_DataEndpointsRequireToken(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{identityID: "child-1"})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/nearby"},
		{http.MethodPost, "/api/v1/location"},
		{http.MethodPost, "/api/v1/journey/start"},
		{http.MethodPost, "/api/v1/sos"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", tt.method, tt.path, rec.Code)
		}
	}
}

func TestRouter_BearerTokenAccepted(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{identityID: "child-1"})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/nearby?lat=10&lng=20", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestRouter_InvalidTokenRejected(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{err: errors.New("signature mismatch")})

	r := httptest.NewRequest(http.MethodPost, "/api/v1/status/battery", nil)
	r.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{identityID: "child-1"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, &fakeVerifier{identityID: "child-1"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
