// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/biodscan/internal/models"
)

func newPublishTestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-test",
		Short: "Publish the test observation to the broker",
		Long: `Connects to the configured broker and publishes the same test observation
as the dashboard's "send test message" button.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, cancel := c.context(cmd.Context())
			defer cancel()

			client, err := c.connectBroker(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			obs := models.TestObservation(c.nowFunc())
			topic, _, err := client.PublishObservation(ctx, &obs)
			if err != nil {
				return fmt.Errorf("publishing test message: %w", err)
			}
			printf(cmd.OutOrStdout(), "Published test message for %s to %s\n", obs.HiveID, topic)
			return nil
		},
	}
}
