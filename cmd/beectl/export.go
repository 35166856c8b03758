// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/biodscan/internal/models"
)

const (
	formatTable    = "table"
	formatJSON     = "json"
	maxExportLimit = 1000
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print stored observations",
		Long:  `Reads the newest observations from DuckDB and prints them as a table or JSON.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("--format must be %q or %q", formatTable, formatJSON)
			}
			if limit < 1 || limit > maxExportLimit {
				return fmt.Errorf("--limit must be between 1 and %d", maxExportLimit)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := c.openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx, cancel := c.context(cmd.Context())
			defer cancel()

			records, err := db.ListObservations(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing observations: %w", err)
			}

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			return writeTable(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum number of records")
	return cmd
}

func writeJSON(w io.Writer, records []models.Observation) error {
	if records == nil {
		records = []models.Observation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeTable(w io.Writer, records []models.Observation) error {
	if len(records) == 0 {
		printf(w, "No observations stored\n")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	printf(tw, "TIMESTAMP\tHIVE\tLOCATION\tTEMP\tHUMIDITY\tBUMBLE\tHONEY\tLADY BUG\tTOTAL\n")
	total := 0
	for i := range records {
		r := &records[i]
		printf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%d\t%d\t%d\t%d\n",
			r.Timestamp.UTC().Format(time.DateTime),
			r.HiveID,
			r.Location,
			r.Temperature,
			r.Humidity,
			r.BumbleBeeCount,
			r.HoneyBeeCount,
			r.LadyBugCount,
			r.TotalBees(),
		)
		total += r.TotalBees()
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printf(w, "%d records, %d bees\n", len(records), total)
	return nil
}
