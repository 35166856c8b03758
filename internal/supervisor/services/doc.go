// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package services adapts Bio-D-Scan components to suture.Service.

Components with their own Serve method (mqtt.ConnectionService,
ingest.Pipeline, simulator.Scheduler) are added to the tree directly. The
wrappers here cover the rest:

  - HTTPServerService: ListenAndServe plus graceful Shutdown
  - WebSocketHubService: websocket.Hub.RunWithContext
  - WALRetryLoopService: an immediate drain of pending publishes, then the
    periodic retry loop
  - WALCompactorService: periodic BadgerDB value log GC

Every wrapper returns ctx.Err() on shutdown and a wrapped error on failure
so that suture restarts it.
*/
package services
