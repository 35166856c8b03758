// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/models"
)

// SeedIfEmpty inserts sample observations when the store has none. It is
// used for demos (SEED_SAMPLE_DATA) and returns the number inserted.
func (db *DB) SeedIfEmpty(ctx context.Context, sample []models.Observation) (int, error) {
	n, err := db.CountObservations(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Debug().Int64("existing", n).Msg("Skipping seed, database not empty")
		return 0, nil
	}

	inserted, err := db.InsertObservations(ctx, sample)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	logging.Info().Int("observations", inserted).Msg("Seeded sample data")
	return inserted, nil
}
