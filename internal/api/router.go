// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/biodscan/internal/auth"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/middleware"
)

// corsMaxAge is how long browsers may cache preflight results, in seconds.
const corsMaxAge = 300

// NewRouter builds the route table.
//
//	/                      banner
//	/health[/live|/ready]  probes, not rate limited
//	/metrics               Prometheus
//	/ws                    WebSocket push
//	/api/...               data, table and MQTT control (httprate per IP)
//
// MQTT publish/subscribe/unsubscribe require authentication; publish and
// login are additionally behind the auth package's per-IP limiter.
func NewRouter(h *Handler, mw *auth.Middleware, sec *config.SecurityConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(corsHandler(sec))
	r.Use(mw.SecurityHeaders)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(sec))

		r.Get("/data", h.ListData)
		r.Post("/data", h.InsertData)
		r.Get("/data/{id}", h.GetData)
		r.Get("/bee-data", h.BeeData)
		r.Get("/external-bee-data", h.ExternalBeeData)
		r.Get("/table", h.Table)
		r.Get("/fields", h.Fields)
		r.Get("/legacy/data", h.LegacyData)

		r.Route("/mqtt", func(r chi.Router) {
			r.Get("/status", h.MQTTStatus)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate)
				r.With(mw.RateLimit).Post("/publish", h.MQTTPublish)
				r.Post("/subscribe", h.MQTTSubscribe)
				r.Post("/unsubscribe", h.MQTTUnsubscribe)
			})
		})

		r.With(mw.RateLimit).Post("/auth/login", h.Login)
	})

	return r
}

// corsHandler allows the configured dashboard origins. Credentials are
// only allowed for explicit origins; browsers refuse them with "*".
func corsHandler(sec *config.SecurityConfig) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range sec.CORSOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   sec.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           corsMaxAge,
	})
}

// rateLimit is the router-wide httprate limit for /api. It is a no-op when
// DISABLE_RATE_LIMIT is set.
func rateLimit(sec *config.SecurityConfig) func(http.Handler) http.Handler {
	if sec.RateLimitDisabled || sec.RateLimitReqs <= 0 || sec.RateLimitWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		sec.RateLimitReqs,
		sec.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(r.URL.Path)
			respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Too many requests", nil)
		}),
	)
}
