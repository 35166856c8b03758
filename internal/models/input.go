// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import (
	"strings"
	"time"
)

// ObservationInput is the request body for inserting an observation.
// Pointer fields distinguish "missing" from zero so that required checks
// report the right field.
type ObservationInput struct {
	ID             string   `json:"id" validate:"omitempty,max=64"`
	HiveID         string   `json:"hive_id" validate:"omitempty,max=64"`
	Temperature    *float64 `json:"temperature" validate:"required,gte=-50,lte=70"`
	Humidity       *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
	BumbleBeeCount *int     `json:"bumble_bee_count" validate:"required,gte=0,lte=100000"`
	HoneyBeeCount  *int     `json:"honey_bee_count" validate:"required,gte=0,lte=100000"`
	LadyBugCount   *int     `json:"lady_bug_count" validate:"required,gte=0,lte=100000"`
	Location       string   `json:"location" validate:"max=128"`
	Notes          string   `json:"notes" validate:"max=1024"`
	Timestamp      string   `json:"timestamp" validate:"omitempty,obs_timestamp"`
}

// ToObservation converts a validated input. A missing timestamp becomes now.
func (in *ObservationInput) ToObservation(now time.Time) Observation {
	obs := Observation{
		ID:       strings.TrimSpace(in.ID),
		HiveID:   strings.TrimSpace(in.HiveID),
		Location: strings.TrimSpace(in.Location),
		Notes:    in.Notes,
	}
	if in.Temperature != nil {
		obs.Temperature = *in.Temperature
	}
	if in.Humidity != nil {
		obs.Humidity = *in.Humidity
	}
	if in.BumbleBeeCount != nil {
		obs.BumbleBeeCount = *in.BumbleBeeCount
	}
	if in.HoneyBeeCount != nil {
		obs.HoneyBeeCount = *in.HoneyBeeCount
	}
	if in.LadyBugCount != nil {
		obs.LadyBugCount = *in.LadyBugCount
	}
	obs.Timestamp = now.UTC()
	if in.Timestamp != "" {
		if ts, err := ParseTimestamp(in.Timestamp); err == nil {
			obs.Timestamp = ts
		}
	}
	return obs
}

// PublishRequest is the body of POST /api/mqtt/publish. An empty payload
// publishes the built-in test observation.
type PublishRequest struct {
	Topic   string           `json:"topic" validate:"omitempty,max=256"`
	Payload *ObservationInput `json:"payload"`
}

// TopicRequest is the body of the subscribe/unsubscribe endpoints.
type TopicRequest struct {
	Topic string `json:"topic" validate:"required,max=256"`
	QoS   *int   `json:"qos" validate:"omitempty,gte=0,lte=2"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}
