// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	legacyTemperatureKey = "Temperature (C)"
	legacyHumidityKey    = "Humidity (%)"

	legacyDateLayout = "2006-01-02"
	legacyTimeLayout = "15:04:05"
)

// legacyKeys are the column names that only the legacy shape uses.
var legacyKeys = []string{
	"Date", "Time", "Bumble Bee", "Honey Bee", "Lady Bug", "Total Count",
	legacyTemperatureKey, legacyHumidityKey, "Location",
}

// currentKeys are the reading names of the current shape.
var currentKeys = []string{
	FieldHiveID, FieldTemperature, FieldHumidity,
	FieldBumbleBeeCount, FieldHoneyBeeCount, FieldLadyBugCount,
}

// LegacyObservation is the spreadsheet-era record shape with human readable
// column names.
type LegacyObservation struct {
	ID          string  `json:"id"`
	Date        string  `json:"Date"`
	Time        string  `json:"Time"`
	BumbleBee   int     `json:"Bumble Bee"`
	HoneyBee    int     `json:"Honey Bee"`
	LadyBug     int     `json:"Lady Bug"`
	TotalCount  int     `json:"Total Count"`
	Temperature float64 `json:"Temperature (C)"`
	Humidity    float64 `json:"Humidity (%)"`
	Location    string  `json:"Location"`
}

// ToObservation converts to the current shape. Date and Time are joined into
// the timestamp; an unparseable pair leaves Timestamp zero.
func (l *LegacyObservation) ToObservation() Observation {
	obs := Observation{
		ID:             strings.TrimSpace(l.ID),
		Temperature:    l.Temperature,
		Humidity:       l.Humidity,
		BumbleBeeCount: l.BumbleBee,
		HoneyBeeCount:  l.HoneyBee,
		LadyBugCount:   l.LadyBug,
		Location:       strings.TrimSpace(l.Location),
	}
	if ts, ok := legacyTimestamp(l.Date, l.Time); ok {
		obs.Timestamp = ts
	}
	return obs
}

// NewLegacyObservation renders o in the legacy shape. Total Count is derived.
func NewLegacyObservation(o *Observation) LegacyObservation {
	l := LegacyObservation{
		ID:          o.ID,
		BumbleBee:   o.BumbleBeeCount,
		HoneyBee:    o.HoneyBeeCount,
		LadyBug:     o.LadyBugCount,
		TotalCount:  o.TotalBees(),
		Temperature: o.Temperature,
		Humidity:    o.Humidity,
		Location:    o.Location,
	}
	if !o.Timestamp.IsZero() {
		ts := o.Timestamp.UTC()
		l.Date = ts.Format(legacyDateLayout)
		l.Time = ts.Format(legacyTimeLayout)
	}
	return l
}

// legacyTimestamp joins a Date column and a Time column. Date may be a plain
// day or a full timestamp, in which case only its day is used; a missing Time
// means midnight.
func legacyTimestamp(date, clock string) (time.Time, bool) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, false
	}
	day, err := ParseTimestamp(date)
	if err != nil {
		return time.Time{}, false
	}
	if clock == "" {
		clock = "00:00:00"
	}
	tod, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), time.UTC), true
}

var clockLayouts = []string{legacyTimeLayout, "15:04:05.999999999", "15:04"}

func parseClock(s string) (time.Time, bool) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidClock reports whether s is a legacy Time column value.
func ValidClock(s string) bool {
	_, ok := parseClock(strings.TrimSpace(s))
	return ok
}

// IsLegacyPayload reports whether payload is a JSON object in the legacy
// column shape: it carries at least one legacy column and none of the
// current reading names.
func IsLegacyPayload(payload []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return false
	}
	return isLegacyShape(fields)
}

func isLegacyShape(fields map[string]json.RawMessage) bool {
	for _, k := range currentKeys {
		if _, ok := fields[k]; ok {
			return false
		}
	}
	for _, k := range legacyKeys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// LegacyObservationInput is an insert request body in the legacy shape.
// Total Count is accepted but always recomputed from the species counts.
type LegacyObservationInput struct {
	ID          string   `json:"id" validate:"omitempty,max=64"`
	Date        string   `json:"Date" validate:"required,obs_timestamp"`
	Time        string   `json:"Time" validate:"required,obs_clock"`
	BumbleBee   *int     `json:"Bumble Bee" validate:"required,gte=0,lte=100000"`
	HoneyBee    *int     `json:"Honey Bee" validate:"required,gte=0,lte=100000"`
	LadyBug     *int     `json:"Lady Bug" validate:"required,gte=0,lte=100000"`
	TotalCount  *int     `json:"Total Count" validate:"omitempty,gte=0"`
	Temperature *float64 `json:"Temperature (C)" validate:"required,gte=-50,lte=70"`
	Humidity    *float64 `json:"Humidity (%)" validate:"required,gte=0,lte=100"`
	Location    string   `json:"Location" validate:"max=128"`
}

// ToObservation converts a validated input. An unusable Date/Time pair
// becomes now.
func (in *LegacyObservationInput) ToObservation(now time.Time) Observation {
	l := LegacyObservation{
		ID:       in.ID,
		Date:     in.Date,
		Time:     in.Time,
		Location: in.Location,
	}
	if in.BumbleBee != nil {
		l.BumbleBee = *in.BumbleBee
	}
	if in.HoneyBee != nil {
		l.HoneyBee = *in.HoneyBee
	}
	if in.LadyBug != nil {
		l.LadyBug = *in.LadyBug
	}
	if in.Temperature != nil {
		l.Temperature = *in.Temperature
	}
	if in.Humidity != nil {
		l.Humidity = *in.Humidity
	}
	obs := l.ToObservation()
	if obs.Timestamp.IsZero() {
		obs.Timestamp = now.UTC()
	}
	return obs
}
