// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/biodscan/internal/auth"
)

func newTokenCmd(c *cli) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a JWT for the API",
		Long: `Signs a token with the configured JWT_SECRET. The token is accepted by the
server's protected MQTT control routes when AUTH_MODE=jwt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			manager, err := auth.NewJWTManager(&cfg.Security)
			if err != nil {
				return err
			}
			token, expiresAt, err := manager.GenerateToken(username, auth.RoleAdmin)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n", token)
			printf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "admin", "subject of the token")
	return cmd
}
