// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package supervisor runs the long-lived Bio-D-Scan services under a suture v4
tree.

	bio-d-scan
	├── data-layer
	│   ├── wal-retry-loop   (WAL_ENABLED)
	│   └── wal-compactor    (WAL_ENABLED)
	├── messaging-layer
	│   ├── mqtt-connection  (MQTT_ENABLED)
	│   ├── ingest-router
	│   ├── websocket-hub
	│   └── simulator        (SIMULATOR_ENABLED)
	└── api-layer
	    └── http-server

Services return ctx.Err() on shutdown and an error when they crash; a
crashed service is restarted with suture's decaying failure counter and
backoff (see TreeConfig). Supervisor events are logged through the slog
adapter from the logging package.

DuckDB and BadgerDB are libraries, not services; main opens them before the
tree starts and closes them after it stops.

Wrappers for components that do not implement Serve themselves live in
the services subpackage.
*/
package supervisor
