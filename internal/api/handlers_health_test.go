// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/biodscan/internal/models"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       []envOption
		pingErr    error
		wantStatus string
		wantDB     bool
		wantMQTT   bool
	}{
		{name: "mqtt disabled", wantStatus: "healthy", wantDB: true},
		{name: "all connected", opts: []envOption{withBroker(true)}, wantStatus: "healthy", wantDB: true, wantMQTT: true},
		{name: "broker down", opts: []envOption{withBroker(false)}, wantStatus: "degraded", wantDB: true},
		{name: "database down", pingErr: errors.New("closed"), wantStatus: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.opts...)
			env.store.pingErr = tt.pingErr
			env.feed.Prepend(models.Observation{ID: "x"})

			rec := do(env.handler.Health, http.MethodGet, "/health", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			health := decodeBody[models.HealthStatus](t, rec)
			if health.Status != tt.wantStatus || health.DatabaseConnected != tt.wantDB || health.MQTTConnected != tt.wantMQTT {
				t.Errorf("health = %+v", health)
			}
			if health.LiveFeedSize != 1 {
				t.Errorf("live_feed_size = %d, want 1", health.LiveFeedSize)
			}
			if !health.Timestamp.Equal(testNow) {
				t.Errorf("timestamp = %v", health.Timestamp)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withBroker(false))
	if rec := do(env.handler.HealthReady, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("ready with broker down: status = %d, want 200", rec.Code)
	}

	env.store.pingErr = errors.New("closed")
	rec := do(env.handler.HealthReady, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	_, data := decodeEnvelope[map[string]interface{}](t, rec)
	if data["status"] != "not_ready" {
		t.Errorf("data = %v", data)
	}
}

func TestHealthLive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.store.pingErr = errors.New("closed")

	rec := do(env.handler.HealthLive, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	_, data := decodeEnvelope[map[string]interface{}](t, rec)
	if data["alive"] != true {
		t.Errorf("data = %v", data)
	}
}
