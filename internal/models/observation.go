// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import (
	"strconv"
	"time"
)

// Sensor ranges outside of which a reading is treated as a faulty sensor.
const (
	MinSensorTemperature = 10.0
	MaxSensorTemperature = 30.0
	MinSensorHumidity    = 30.0
	MaxSensorHumidity    = 90.0
)

// MaxSpeciesCount bounds each species count of one observation. The insert
// validation tags use the same bound.
const MaxSpeciesCount = 100000

// Observation is one bee/environment reading.
type Observation struct {
	ID             string    `json:"id"`
	HiveID         string    `json:"hive_id"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	BumbleBeeCount int       `json:"bumble_bee_count"`
	HoneyBeeCount  int       `json:"honey_bee_count"`
	LadyBugCount   int       `json:"lady_bug_count"`
	Location       string    `json:"location"`
	Notes          string    `json:"notes"`
	Timestamp      time.Time `json:"timestamp"`
}

// Field names accepted by table search, in display order.
const (
	FieldID             = "id"
	FieldHiveID         = "hive_id"
	FieldTemperature    = "temperature"
	FieldHumidity       = "humidity"
	FieldBumbleBeeCount = "bumble_bee_count"
	FieldHoneyBeeCount  = "honey_bee_count"
	FieldLadyBugCount   = "lady_bug_count"
	FieldLocation       = "location"
	FieldNotes          = "notes"
	FieldTimestamp      = "timestamp"
)

// ObservationFields lists every searchable field.
var ObservationFields = []string{
	FieldID, FieldHiveID, FieldTemperature, FieldHumidity,
	FieldBumbleBeeCount, FieldHoneyBeeCount, FieldLadyBugCount,
	FieldLocation, FieldNotes, FieldTimestamp,
}

// IsObservationField reports whether name is a searchable field.
func IsObservationField(name string) bool {
	for _, f := range ObservationFields {
		if f == name {
			return true
		}
	}
	return false
}

// FieldString returns the string form of a field as the dashboard renders it.
// Numbers use the shortest representation ("22.5", "3"), timestamps RFC3339.
// ok is false for unknown fields.
func (o *Observation) FieldString(field string) (value string, ok bool) {
	switch field {
	case FieldID:
		return o.ID, true
	case FieldHiveID:
		return o.HiveID, true
	case FieldTemperature:
		return formatFloat(o.Temperature), true
	case FieldHumidity:
		return formatFloat(o.Humidity), true
	case FieldBumbleBeeCount:
		return strconv.Itoa(o.BumbleBeeCount), true
	case FieldHoneyBeeCount:
		return strconv.Itoa(o.HoneyBeeCount), true
	case FieldLadyBugCount:
		return strconv.Itoa(o.LadyBugCount), true
	case FieldLocation:
		return o.Location, true
	case FieldNotes:
		return o.Notes, true
	case FieldTimestamp:
		if o.Timestamp.IsZero() {
			return "", true
		}
		return o.Timestamp.UTC().Format(time.RFC3339), true
	}
	return "", false
}

// TotalBees is the sum of all species counts.
func (o *Observation) TotalBees() int {
	return o.BumbleBeeCount + o.HoneyBeeCount + o.LadyBugCount
}

// InSensorRange reports whether temperature and humidity are plausible sensor
// output (10-30 C, 30-90 %).
func (o *Observation) InSensorRange() bool {
	return o.Temperature >= MinSensorTemperature && o.Temperature <= MaxSensorTemperature &&
		o.Humidity >= MinSensorHumidity && o.Humidity <= MaxSensorHumidity
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FieldSummary aggregates observations for one location.
type FieldSummary struct {
	Location       string    `json:"location"`
	Observations   int       `json:"observations"`
	Hives          int       `json:"hives"`
	AvgTemperature float64   `json:"avg_temperature"`
	AvgHumidity    float64   `json:"avg_humidity"`
	TotalBees      int       `json:"total_bees"`
	LastSeen       time.Time `json:"last_seen"`
}
