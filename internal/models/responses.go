// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import "time"

// APIResponse is the envelope used by the operational endpoints (table,
// fields, MQTT control, auth).
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//	{"status":"error","error":{"code":"VALIDATION_FAILED","message":"..."},"metadata":{...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine readable error.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ListResponse is the body of the data listing endpoints.
type ListResponse struct {
	Message string        `json:"message"`
	Data    []Observation `json:"data"`
	Count   int           `json:"count"`
}

// ExternalResponse is the body of GET /api/external-bee-data.
type ExternalResponse struct {
	Message   string        `json:"message"`
	Data      []Observation `json:"data"`
	Count     int           `json:"count"`
	Source    string        `json:"source"` // "upstream" or "simulator"
	Timestamp time.Time     `json:"timestamp"`
}

// InsertResponse is the 201 body of POST /api/data. The newData key is the
// established client contract.
type InsertResponse struct {
	Message string      `json:"message"`
	NewData Observation `json:"newData"`
}

// ValidationErrorResponse is the 400 body of POST /api/data; Errors maps
// JSON field name to a human readable problem.
type ValidationErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// ErrorResponse is the 500 body of the data endpoints.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string    `json:"status"` // healthy or degraded
	MQTTConnected     bool      `json:"mqtt_connected"`
	DatabaseConnected bool      `json:"database_connected"`
	WebSocketClients  int       `json:"websocket_clients"`
	LiveFeedSize      int       `json:"live_feed_size"`
	Uptime            float64   `json:"uptime_seconds"`
	Timestamp         time.Time `json:"timestamp"`
}

// TokenResponse is returned by a successful login in jwt mode.
type TokenResponse struct {
	Token     string    `json:"token,omitempty"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// LegacyListResponse is the body of GET /api/legacy/data.
type LegacyListResponse struct {
	Message string              `json:"message"`
	Data    []LegacyObservation `json:"data"`
	Count   int                 `json:"count"`
}

// PublishResult is the data of a successful POST /api/mqtt/publish.
type PublishResult struct {
	Topic   string      `json:"topic"`
	Payload Observation `json:"payload"`
	Queued  bool        `json:"queued"`
	WALID   string      `json:"wal_id,omitempty"`
}

// SubscriptionResult is the data of the subscribe/unsubscribe endpoints.
type SubscriptionResult struct {
	Topic         string   `json:"topic"`
	Subscriptions []string `json:"subscriptions"`
}
