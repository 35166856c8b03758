// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package database is the observation store, backed by DuckDB through
// database/sql and github.com/duckdb/duckdb-go/v2.
//
// # Overview
//
// A DB is an explicitly owned handle: the server opens it on startup with New
// and closes it after the supervisor tree has stopped. Nothing in this package
// keeps a process-wide connection.
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	obs := models.Observation{HiveID: "HIVE-001", Temperature: 22.5, Humidity: 65}
//	if err := db.InsertObservation(ctx, &obs); err != nil { ... }
//	latest, err := db.ListObservations(ctx, 100)
//
// # Schema
//
// One table, observations, keyed by the observation ID. There is no update or
// delete path; inserting an existing ID returns ErrDuplicate.
//
// # Errors
//
// Query failures are wrapped with %w. ErrNotFound and ErrDuplicate are
// sentinels for errors.Is. Connection loss triggers one reconnect attempt
// with exponential backoff before the error is returned.
package database
