// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
)

// MaxListLimit caps every list query.
const MaxListLimit = 1000

const observationColumns = `id, hive_id, temperature, humidity,
	bumble_bee_count, honey_bee_count, lady_bug_count,
	location, notes, observed_at`

const insertObservationSQL = `INSERT INTO observations (` + observationColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (models.Observation, error) {
	var obs models.Observation
	err := row.Scan(
		&obs.ID, &obs.HiveID, &obs.Temperature, &obs.Humidity,
		&obs.BumbleBeeCount, &obs.HoneyBeeCount, &obs.LadyBugCount,
		&obs.Location, &obs.Notes, &obs.Timestamp,
	)
	obs.Timestamp = obs.Timestamp.UTC()
	return obs, err
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// prepareForInsert fills the ID and timestamp when missing.
func prepareForInsert(obs *models.Observation) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	obs.Timestamp = obs.Timestamp.UTC().Truncate(time.Microsecond)
}

func insertArgs(obs *models.Observation) []any {
	return []any{
		obs.ID, obs.HiveID, obs.Temperature, obs.Humidity,
		obs.BumbleBeeCount, obs.HoneyBeeCount, obs.LadyBugCount,
		obs.Location, obs.Notes, obs.Timestamp,
	}
}

// InsertObservation stores obs. A missing ID is generated and a zero
// timestamp becomes now; both are written back to obs so the caller can echo
// the stored document. An existing ID yields ErrDuplicate.
func (db *DB) InsertObservation(ctx context.Context, obs *models.Observation) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	prepareForInsert(obs)
	start := time.Now()

	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, insertObservationSQL, insertArgs(obs)...)
		return err
	})
	metrics.RecordDBQuery("INSERT", "observations", time.Since(start), err)

	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert observation %s: %w", obs.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// InsertObservations stores a batch in one transaction. Observations whose ID
// already exists are skipped. Missing IDs and timestamps are filled in place.
// It returns how many rows were written.
func (db *DB) InsertObservations(ctx context.Context, batch []models.Observation) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	for i := range batch {
		prepareForInsert(&batch[i])
	}

	start := time.Now()
	inserted := 0
	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		inserted = 0
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertObservationSQL+` ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prepare: %w", err)
		}
		defer closeQuietly(stmt)

		for i := range batch {
			res, err := stmt.ExecContext(ctx, insertArgs(&batch[i])...)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert %s: %w", batch[i].ID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return tx.Commit()
	})
	metrics.RecordDBQuery("INSERT_BATCH", "observations", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("insert observations: %w", err)
	}
	return inserted, nil
}

func (db *DB) queryObservations(ctx context.Context, operation, query string, args ...any) ([]models.Observation, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var out []models.Observation
	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		out = make([]models.Observation, 0)
		for rows.Next() {
			obs, err := scanObservation(rows)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			out = append(out, obs)
		}
		return rows.Err()
	})
	metrics.RecordDBQuery(operation, "observations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return out, nil
}

// ListObservations returns up to limit observations, newest first. A
// non-positive limit means MaxListLimit.
func (db *DB) ListObservations(ctx context.Context, limit int) ([]models.Observation, error) {
	return db.queryObservations(ctx, "SELECT",
		`SELECT `+observationColumns+` FROM observations
		ORDER BY observed_at DESC, created_at DESC, id
		LIMIT ?`, clampLimit(limit))
}

// ListInSensorRange returns the latest observations whose readings fall in
// the plausible sensor range (see models.InSensorRange).
func (db *DB) ListInSensorRange(ctx context.Context, limit int) ([]models.Observation, error) {
	return db.queryObservations(ctx, "SELECT_RANGE",
		`SELECT `+observationColumns+` FROM observations
		WHERE temperature BETWEEN ? AND ?
		  AND humidity BETWEEN ? AND ?
		ORDER BY observed_at DESC, created_at DESC, id
		LIMIT ?`,
		models.MinSensorTemperature, models.MaxSensorTemperature,
		models.MinSensorHumidity, models.MaxSensorHumidity,
		clampLimit(limit))
}

// GetObservation looks up one observation by ID.
func (db *DB) GetObservation(ctx context.Context, id string) (models.Observation, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var obs models.Observation
	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		var err error
		obs, err = scanObservation(conn.QueryRowContext(ctx,
			`SELECT `+observationColumns+` FROM observations WHERE id = ?`, id))
		return err
	})
	metrics.RecordDBQuery("SELECT_ONE", "observations", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Observation{}, fmt.Errorf("observation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Observation{}, fmt.Errorf("get observation: %w", err)
	}
	return obs, nil
}

// CountObservations returns the number of stored observations.
func (db *DB) CountObservations(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var n int64
	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n)
	})
	metrics.RecordDBQuery("COUNT", "observations", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// UnassignedLocation labels observations stored without a location.
const UnassignedLocation = "Unassigned"

// FieldSummaries aggregates observations per location, busiest first.
func (db *DB) FieldSummaries(ctx context.Context) ([]models.FieldSummary, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var out []models.FieldSummary
	err := db.withReconnect(ctx, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT
				COALESCE(NULLIF(location, ''), ?) AS loc,
				COUNT(*),
				COUNT(DISTINCT hive_id),
				AVG(temperature),
				AVG(humidity),
				CAST(SUM(bumble_bee_count + honey_bee_count + lady_bug_count) AS BIGINT),
				MAX(observed_at)
			FROM observations
			GROUP BY loc
			ORDER BY COUNT(*) DESC, loc`, UnassignedLocation)
		if err != nil {
			return err
		}
		defer closeQuietly(rows)

		out = make([]models.FieldSummary, 0)
		for rows.Next() {
			var s models.FieldSummary
			var total int64
			if err := rows.Scan(&s.Location, &s.Observations, &s.Hives,
				&s.AvgTemperature, &s.AvgHumidity, &total, &s.LastSeen); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			s.TotalBees = int(total)
			s.LastSeen = s.LastSeen.UTC()
			out = append(out, s)
		}
		return rows.Err()
	})
	metrics.RecordDBQuery("AGGREGATE", "observations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("field summaries: %w", err)
	}
	return out, nil
}
