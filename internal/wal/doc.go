// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package wal is a durable outbox for MQTT publishes, stored in BadgerDB.
//
// When a publish is requested while the broker is unreachable, the message is
// written to the WAL instead of being lost. The RetryLoop republishes pending
// entries once the broker is back and confirms them on success:
//
//	Publish request → broker down → WAL Write (fsync)
//	                                      ↓
//	                 RetryLoop tick, broker up → Publish → WAL Confirm
//
// Entries expire through BadgerDB's native TTL (WAL_ENTRY_TTL). Entries that
// reach WAL_MAX_RETRIES stay pending until they expire but are no longer
// retried.
//
// # Usage
//
//	w, err := wal.Open(&cfg.WAL)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	id, err := w.Write(ctx, "sensors/bee-data", payload)
//	...
//	loop := wal.NewRetryLoop(w, mqttClient, &cfg.WAL)
//	tree.AddMessagingService(loop)
package wal
