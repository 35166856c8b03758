// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import "time"

// MQTTMessage is a message as received from the broker.
type MQTTMessage struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	QoS        byte      `json:"qos"`
	Retained   bool      `json:"retained"`
	IsBeeData  bool      `json:"is_bee_data"`
	ReceivedAt time.Time `json:"received_at"`
}

// MQTTStatus is the body of GET /api/mqtt/status.
type MQTTStatus struct {
	Connected      bool          `json:"connected"`
	Broker         string        `json:"broker"`
	ClientID       string        `json:"client_id"`
	Subscriptions  []string      `json:"subscriptions"`
	RecentMessages []MQTTMessage `json:"recent_messages"`
	LastError      string        `json:"error,omitempty"`
	PendingWAL     int           `json:"pending_wal"`
}

// TestObservation is the payload published by the "send test message" action.
func TestObservation(now time.Time) Observation {
	return Observation{
		HiveID:         "TEST-HIVE",
		Temperature:    22.5,
		Humidity:       65.0,
		BumbleBeeCount: 3,
		HoneyBeeCount:  8,
		LadyBugCount:   1,
		Location:       "Test Location",
		Timestamp:      now.UTC(),
	}
}
