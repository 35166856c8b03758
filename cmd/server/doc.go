// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package main is the entry point for the Bio-D-Scan server.

Bio-D-Scan collects pollinator observations (bumble bees, honey bees and
lady bugs counted per hive, with temperature and humidity) from field
sensors over MQTT and HTTP, stores them in DuckDB, and serves them to the
dashboard through a REST API and a WebSocket live feed.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("bio-d-scan")
	├── DataSupervisor ("data-layer")
	│   ├── WAL retry loop (WAL_ENABLED)
	│   └── WAL compactor (WAL_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── Ingest router (MQTT messages into DuckDB)
	│   ├── MQTT connection (MQTT_ENABLED)
	│   └── Simulator (SIMULATOR_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: koanf v2 with defaults, optional YAML and environment
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Database: DuckDB, optionally seeded with sample data
 4. Ingest pipeline and live feed
 5. MQTT client, WAL outbox and upstream client (each optional)
 6. Authentication and HTTP routes
 7. Supervisor tree

# Configuration

Common environment variables:

	HTTP_PORT=8000
	DUCKDB_PATH=/data/biodscan.duckdb
	MQTT_ENABLED=true
	MQTT_HOST=mosquitto
	MQTT_SUBSCRIBE_TOPICS=sensors/bee-data,bio-d-scan/bee-data/#
	UPSTREAM_URL=https://bee-api.example.org
	SIMULATOR_ENABLED=true
	AUTH_MODE=jwt

# Signal Handling

SIGINT and SIGTERM cancel the tree. The HTTP server drains in-flight
requests for up to 10 seconds. The ingest pipeline, WAL and database are
closed after every service has stopped.

# Example Usage

Local development with a broker on localhost:

	export MQTT_ENABLED=true
	export AUTH_MODE=none
	./biodscan
*/
package main
