// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/database"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/mqtt"
)

const defaultTimeout = 15 * time.Second

// initLogging runs once per process.
var initLogging sync.Once

var errMQTTDisabled = errors.New("MQTT is disabled (set MQTT_ENABLED=true)")

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	timeout    time.Duration
	verbose    bool

	loadConfig func() (*config.Config, error)
	nowFunc    func() time.Time
}

func newCLI() *cli {
	return &cli{
		loadConfig: config.Load,
		nowFunc:    time.Now,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "beectl",
		Short: "Operate a Bio-D-Scan deployment",
		Long: `beectl talks to the same broker and DuckDB file as the Bio-D-Scan server.
It publishes test and simulated observations, mints API tokens and exports
stored records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.configPath != "" {
				if err := os.Setenv(config.ConfigPathEnvVar, c.configPath); err != nil {
					return fmt.Errorf("setting config path: %w", err)
				}
			}
			initLogging.Do(func() {
				level := "warn"
				if c.verbose {
					level = "debug"
				}
				logging.Init(logging.Config{Level: level, Format: "console"})
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", defaultTimeout, "timeout for broker and database operations")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newPublishTestCmd(c),
		newSimulateCmd(c),
		newTokenCmd(c),
		newExportCmd(c),
	)
	return root
}

func (c *cli) context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// openDB opens the configured DuckDB file.
func (c *cli) openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// connectBroker returns a connected client. Callers must Disconnect it.
func (c *cli) connectBroker(ctx context.Context, cfg *config.Config) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		return nil, errMQTTDisabled
	}
	mqtt.InstallLoggers()
	client := mqtt.New(&cfg.MQTT)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", client.Broker(), err)
	}
	return client, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
