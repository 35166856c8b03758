// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
)

// Mode is the AUTH_MODE value.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeBasic Mode = "basic"
	ModeJWT   Mode = "jwt"
)

type contextKey string

// ClaimsContextKey holds *Claims for authenticated requests.
const ClaimsContextKey contextKey = "claims"

// TokenCookie is the cookie checked when no Authorization header is sent.
const TokenCookie = "token"

// ErrAuthDisabled is returned by Login when AUTH_MODE is none.
var ErrAuthDisabled = errors.New("authentication is disabled")

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitIdleTTL         = time.Hour
)

// Middleware provides authentication, rate limiting and security headers.
type Middleware struct {
	mode              Mode
	jwtManager        *JWTManager
	basicAuthManager  *BasicAuthManager
	rateLimiter       *RateLimiter
	rateLimitDisabled bool
}

// NewMiddleware builds the managers AUTH_MODE needs. Basic and jwt both use
// the admin credentials; jwt additionally needs the signing secret.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	mode := Mode(cfg.AuthMode)
	if mode == "" {
		mode = ModeNone
	}

	m := &Middleware{
		mode:              mode,
		rateLimitDisabled: cfg.RateLimitDisabled,
	}

	switch mode {
	case ModeNone:
	case ModeBasic, ModeJWT:
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("admin credentials: %w", err)
		}
		m.basicAuthManager = basic
		if mode == ModeJWT {
			jwtManager, err := NewJWTManager(cfg)
			if err != nil {
				return nil, err
			}
			m.jwtManager = jwtManager
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	if !cfg.RateLimitDisabled {
		m.rateLimiter = NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitWindow)
		go m.rateLimiter.startCleanup(rateLimitCleanupInterval)
	}
	return m, nil
}

// Mode returns the configured authentication mode.
func (m *Middleware) Mode() Mode {
	return m.mode
}

// Stop ends the rate limiter cleanup goroutine.
func (m *Middleware) Stop() {
	if m.rateLimiter != nil {
		m.rateLimiter.Stop()
	}
}

// Authenticate rejects requests that do not carry valid admin credentials
// for the configured mode. Claims are stored under ClaimsContextKey.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			claims *Claims
			err    error
		)
		switch m.mode {
		case ModeNone:
			next.ServeHTTP(w, r)
			return
		case ModeBasic:
			claims, err = m.basicClaims(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", m.basicAuthManager.WWWAuthenticate())
			}
		default:
			claims, err = m.jwtClaims(r)
		}

		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).
				Str("mode", string(m.mode)).
				Str("path", r.URL.Path).
				Msg("Authentication failed")
			writeUnauthorized(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) basicClaims(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("authentication required")
	}
	username, err := m.basicAuthManager.ValidateCredentials(header)
	if err != nil {
		return nil, err
	}
	return &Claims{Username: username, Role: RoleAdmin}, nil
}

func (m *Middleware) jwtClaims(r *http.Request) (*Claims, error) {
	token, err := extractJWTToken(r)
	if err != nil {
		return nil, err
	}
	return m.jwtManager.ValidateToken(token)
}

// extractJWTToken reads a Bearer header, falling back to the token cookie.
func extractJWTToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie(TokenCookie)
		if err != nil || cookie.Value == "" {
			return "", fmt.Errorf("missing token")
		}
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return token, nil
}

// Login checks admin credentials. In jwt mode it also issues a token; in
// basic mode the response only confirms the credentials.
func (m *Middleware) Login(username, password string) (models.TokenResponse, error) {
	if m.mode == ModeNone {
		return models.TokenResponse{}, ErrAuthDisabled
	}
	if err := m.basicAuthManager.Check(username, password); err != nil {
		return models.TokenResponse{}, err
	}

	resp := models.TokenResponse{Username: username}
	if m.mode == ModeJWT {
		token, expiresAt, err := m.jwtManager.GenerateToken(username, RoleAdmin)
		if err != nil {
			return models.TokenResponse{}, err
		}
		resp.Token = token
		resp.ExpiresAt = expiresAt
	}
	return resp, nil
}

// ClaimsFromContext returns the claims Authenticate stored, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// RateLimit applies the per-IP token bucket. It is used on the login and
// publish routes on top of the router-wide httprate limit.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimitDisabled || m.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !m.rateLimiter.Allow(clientIP(r)) {
			metrics.RecordRateLimitHit(r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets headers suitable for a JSON API.
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. The router does not trust
// forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "Unauthorized"
	if errors.Is(err, ErrInvalidToken) {
		msg = "Unauthorized: invalid token"
	} else if errors.Is(err, ErrInvalidCredentials) {
		msg = "Unauthorized: invalid credentials"
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// RateLimiter implements per-IP rate limiting with automatic cleanup.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	nowFunc   func() time.Time
	stopOnce  sync.Once
	stopClean chan struct{}
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows reqsPerWindow requests per window per IP, refilled
// evenly across the window.
func NewRateLimiter(reqsPerWindow int, window time.Duration) *RateLimiter {
	if reqsPerWindow < 1 {
		reqsPerWindow = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Every(window / time.Duration(reqsPerWindow)),
		burst:     reqsPerWindow,
		nowFunc:   time.Now,
		stopClean: make(chan struct{}),
	}
}

// Allow reports whether ip may make another request now.
func (rl *RateLimiter) Allow(ip string) bool {
	now := rl.nowFunc()

	rl.mu.Lock()
	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (rl *RateLimiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopClean:
			return
		}
	}
}

// cleanup drops entries idle longer than rateLimitIdleTTL.
func (rl *RateLimiter) cleanup() {
	threshold := rl.nowFunc().Add(-rateLimitIdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopClean) })
}
