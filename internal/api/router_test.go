// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/models"
)

const (
	testAdminUser = "admin"
	testAdminPass = "pollinator-pass"
)

func newTestRouter(t *testing.T, sec config.SecurityConfig, opts ...envOption) (http.Handler, *testEnv) {
	t.Helper()
	env := newTestEnv(t, opts...)
	env.handler.cfg.Security = sec
	mw := newAuthMiddleware(t, &sec)
	env.handler.auth = mw
	return NewRouter(env.handler, mw, &sec), env
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func openSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		AuthMode:          "none",
		RateLimitDisabled: true,
		CORSOrigins:       []string{"http://localhost:3000"},
	}
}

func jwtSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		AuthMode:          "jwt",
		JWTSecret:         "router-test-secret-that-is-long-enough-0123456789",
		SessionTimeout:    time.Hour,
		AdminUsername:     testAdminUser,
		AdminPassword:     testAdminPass,
		RateLimitDisabled: true,
		CORSOrigins:       []string{"http://localhost:3000"},
	}
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, openSecurity(), withBroker(true))

	tests := []struct {
		method   string
		path     string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/data", "", http.StatusOK},
		{http.MethodPost, "/api/data", validObservationBody, http.StatusCreated},
		{http.MethodGet, "/api/data/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/bee-data", "", http.StatusOK},
		{http.MethodGet, "/api/external-bee-data", "", http.StatusOK},
		{http.MethodGet, "/api/table", "", http.StatusOK},
		{http.MethodGet, "/api/fields", "", http.StatusOK},
		{http.MethodGet, "/api/legacy/data", "", http.StatusOK},
		{http.MethodGet, "/api/mqtt/status", "", http.StatusOK},
		{http.MethodPost, "/api/mqtt/publish", "", http.StatusOK},
		{http.MethodPost, "/api/mqtt/subscribe", `{"topic":"a/b"}`, http.StatusOK},
		{http.MethodPost, "/api/auth/login", `{"username":"a","password":"b"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{http.MethodDelete, "/api/data", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rec := serve(router, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing security headers")
			}
		})
	}
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, openSecurity())

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	resp, _ := decodeEnvelope[any](t, rec)
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestRouter_JWTProtectsMQTTControl(t *testing.T) {
	t.Parallel()
	router, env := newTestRouter(t, jwtSecurity(), withBroker(true))

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/api/mqtt/publish", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("publish without token: status = %d, want 401", rec.Code)
	}
	if env.broker.publishCount() != 0 {
		t.Fatal("unauthenticated publish reached the broker")
	}

	// Data ingestion stays open for field devices.
	req := httptest.NewRequest(http.MethodPost, "/api/data", strings.NewReader(validObservationBody))
	if rec := serve(router, req); rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/data status = %d, want 201", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong-password"}`))
	if rec := serve(router, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"`+testAdminPass+`"}`))
	rec = serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	_, tok := decodeEnvelope[models.TokenResponse](t, rec)
	if tok.Token == "" || tok.Username != testAdminUser {
		t.Fatalf("token response = %+v", tok)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("token cookie = %+v", cookie)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/mqtt/publish", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Fatalf("publish with bearer: status = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/mqtt/subscribe", strings.NewReader(`{"topic":"x/y"}`))
	req.AddCookie(cookie)
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Fatalf("subscribe with cookie: status = %d", rec.Code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	sec := openSecurity()
	sec.RateLimitDisabled = false
	sec.RateLimitReqs = 2
	sec.RateLimitWindow = time.Minute
	router, _ := newTestRouter(t, sec)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		codes = append(codes, serve(router, req).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Health probes are outside the limited group.
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	if rec := serve(router, req); rec.Code != http.StatusOK {
		t.Errorf("health after limit: status = %d", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, openSecurity())

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{origin: "http://localhost:3000", wantAllow: "http://localhost:3000"},
		{origin: "http://evil.example", wantAllow: ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := serve(router, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
			t.Errorf("origin %s: allow = %q, want %q", tt.origin, got, tt.wantAllow)
		}
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: false},
		{origin: "http://localhost:3000", want: true},
		{origin: "http://localhost:3001", want: false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := env.handler.checkWebSocketOrigin(req); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestWebSocket_NoHub(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := do(env.handler.WebSocket, http.MethodGet, "/ws", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
