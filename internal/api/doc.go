// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package api serves the dashboard's HTTP surface with a chi router.

Handler methods are split by area:

  - handler.go: Handler struct, dependencies and constructor
  - handlers_data.go: observation insert and listing, external and legacy feeds
  - handlers_table.go: table projection and per-field summaries
  - handlers_mqtt.go: broker status, publish and subscription control
  - handlers_auth.go: admin login
  - handlers_health.go: health, liveness and readiness
  - handlers_websocket.go: /ws upgrade with origin checks
  - router.go: route table and middleware stack

Response shapes:

The data endpoints (/api/data, /api/data/{id}, /api/bee-data,
/api/external-bee-data) keep the plain {message, data, count} bodies
dashboard clients already consume. POST /api/data also accepts the legacy
column shape.
Everything else uses models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
	{"status":"error","error":{"code":"SERVICE_UNAVAILABLE","message":"..."},"metadata":{...}}

Dependencies are interfaces so handlers can be tested against fakes; the
production wiring in cmd/server passes the DuckDB handle, the MQTT client,
the WAL and the ingest pipeline.
*/
package api
