// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/biodscan/internal/models"
)

// pingTimeout bounds the database check of the health endpoints.
const pingTimeout = 2 * time.Second

func (h *Handler) databaseConnected(ctx context.Context) bool {
	if h.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx) == nil
}

// Health handles GET /health. It is always 200; status is "degraded" when
// the database is down or MQTT is enabled but disconnected.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.databaseConnected(r.Context())
	mqttConnected := h.mqttConnected()

	status := "healthy"
	if !dbConnected || (h.broker != nil && !mqttConnected) {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:            status,
		MQTTConnected:     mqttConnected,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
		Timestamp:         h.now(),
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}
	if h.feed != nil {
		health.LiveFeedSize = h.feed.Len()
	}
	writeJSON(w, http.StatusOK, &health)
}

// HealthLive handles GET /health/live: 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Time{})
}

// HealthReady handles GET /health/ready: 503 until the database answers.
// MQTT is not required; publishes queue to the WAL while it is down.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.databaseConnected(r.Context())

	statusCode := http.StatusOK
	status := "ready"
	if !dbConnected {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondSuccess(w, statusCode, map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"mqtt_connected":     h.mqttConnected(),
	}, time.Time{})
}
