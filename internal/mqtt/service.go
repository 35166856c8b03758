// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package mqtt

import (
	"context"
	"time"

	"github.com/tomtom215/biodscan/internal/logging"
)

// statusInterval is how often a disconnected service logs its state.
const statusInterval = 30 * time.Second

// ConnectionService runs the broker connection under the supervisor.
// Serve connects, then waits for shutdown and disconnects. paho handles
// reconnects itself, so Serve only returns when ctx ends.
type ConnectionService struct {
	client *Client
}

// NewConnectionService wraps client for the supervisor tree.
func NewConnectionService(client *Client) *ConnectionService {
	return &ConnectionService{client: client}
}

// Serve implements suture.Service.
func (s *ConnectionService) Serve(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		logging.Warn().Err(err).Msg("MQTT broker not reachable yet, retrying in background")
	}
	defer s.client.Disconnect()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.client.IsConnected() {
				logging.Warn().
					Str("broker", s.client.Broker()).
					Str("error", s.client.Status().LastError).
					Msg("MQTT broker still disconnected")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *ConnectionService) String() string {
	return "mqtt-connection"
}
