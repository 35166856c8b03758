// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package metrics defines the Prometheus metrics exported at /metrics.

All collectors are registered on the default registry through promauto and
are safe for concurrent use. Callers normally use the Record* helpers rather
than touching the collectors directly.

# Available Metrics

HTTP:
  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Database:
  - duckdb_query_duration_seconds{operation, table}
  - duckdb_query_errors_total{operation, table, error_type}

Messaging:
  - mqtt_connected
  - mqtt_messages_received_total{bee_data}
  - mqtt_messages_published_total{result}
  - mqtt_messages_dropped_total{reason}

Ingest and live feed:
  - ingest_observations_total{result} (stored, skipped, failed)
  - live_feed_size

WAL, upstream, simulator, websocket:
  - wal_pending_entries, wal_retries_total{result}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name, result},
    circuit_breaker_state_transitions_total{name, from_state, to_state}
  - simulator_runs_total{result}, simulator_observations_total
  - websocket_connections, websocket_messages_sent_total
*/
package metrics
