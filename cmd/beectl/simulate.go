// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/biodscan/internal/simulator"
)

const maxSimulateCount = 1000

func newSimulateCmd(c *cli) *cobra.Command {
	var (
		count    int
		store    bool
		location string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate simulated hive observations",
		Long: `Generates simulated observations and publishes them to the broker. With
--store they are written straight into DuckDB instead, which works without a
broker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 || count > maxSimulateCount {
				return fmt.Errorf("--count must be between 1 and %d", maxSimulateCount)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if location == "" {
				location = cfg.Simulator.Location
			}

			ctx, cancel := c.context(cmd.Context())
			defer cancel()

			batch := simulator.NewGenerator(location, nil).Generate(c.nowFunc(), count)
			out := cmd.OutOrStdout()

			if store {
				db, err := c.openDB(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()

				n, err := db.InsertObservations(ctx, batch)
				if err != nil {
					return fmt.Errorf("storing observations: %w", err)
				}
				printf(out, "Stored %d observations in %s\n", n, cfg.Database.Path)
				return nil
			}

			client, err := c.connectBroker(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			published := 0
			for i := range batch {
				topic, _, err := client.PublishObservation(ctx, &batch[i])
				if err != nil {
					return fmt.Errorf("publishing %s after %d of %d: %w", batch[i].HiveID, published, len(batch), err)
				}
				published++
				printf(out, "%s  %s  bees=%d\n", topic, batch[i].HiveID, batch[i].TotalBees())
			}
			printf(out, "Published %d observations\n", published)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of observations to generate")
	cmd.Flags().BoolVar(&store, "store", false, "write to DuckDB instead of publishing")
	cmd.Flags().StringVar(&location, "location", "", "field location (default SIMULATOR_LOCATION)")
	return cmd
}
