// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// observed_at is stored as a naive TIMESTAMP holding UTC.
var tableQueries = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		id VARCHAR PRIMARY KEY,
		hive_id VARCHAR NOT NULL,
		temperature DOUBLE NOT NULL,
		humidity DOUBLE NOT NULL,
		bumble_bee_count INTEGER NOT NULL DEFAULT 0,
		honey_bee_count INTEGER NOT NULL DEFAULT 0,
		lady_bug_count INTEGER NOT NULL DEFAULT 0,
		location VARCHAR NOT NULL DEFAULT '',
		notes VARCHAR NOT NULL DEFAULT '',
		observed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	)`,
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_observations_observed_at ON observations(observed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_location ON observations(location)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_hive ON observations(hive_id)`,
}

func (db *DB) execAll(queries []string) error {
	ctx, cancel := schemaContext()
	defer cancel()

	conn, err := db.handle()
	if err != nil {
		return err
	}
	for _, q := range queries {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", q, err)
		}
	}
	return nil
}

// createTables creates the observations table
func (db *DB) createTables() error {
	return db.execAll(tableQueries)
}

// createIndexes creates the lookup indexes
func (db *DB) createIndexes() error {
	return db.execAll(indexQueries)
}
