// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotObservation is returned when a payload is valid JSON but lacks the
// readings that make it an observation.
var ErrNotObservation = errors.New("payload is not an observation")

// ErrInvalidReading is returned when a species count is outside
// 0..MaxSpeciesCount.
var ErrInvalidReading = errors.New("reading out of range")

// timestampLayouts are tried in order. Sensors and the Python gateway emit
// naive ISO timestamps without a zone; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats seen on the wire.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// wireObservation mirrors the current JSON shape with optional fields so
// presence can be detected. Counts are float64 because some publishers send 3.0.
type wireObservation struct {
	ID             *json.RawMessage `json:"id"`
	MongoID        *json.RawMessage `json:"_id"`
	HiveID         *string          `json:"hive_id"`
	Temperature    *float64         `json:"temperature"`
	Humidity       *float64         `json:"humidity"`
	BumbleBeeCount *float64         `json:"bumble_bee_count"`
	HoneyBeeCount  *float64         `json:"honey_bee_count"`
	LadyBugCount   *float64         `json:"lady_bug_count"`
	Location       *string          `json:"location"`
	Notes          *string          `json:"notes"`
	Timestamp      *string          `json:"timestamp"`
}

// IsBeeData reports whether payload is a JSON object carrying both
// temperature and humidity, in either shape.
func IsBeeData(payload []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return false
	}
	_, t := fields["temperature"]
	_, h := fields["humidity"]
	if t && h {
		return true
	}
	_, lt := fields[legacyTemperatureKey]
	_, lh := fields[legacyHumidityKey]
	return lt && lh
}

// wireLegacy mirrors LegacyObservation with optional fields and float
// counts, like wireObservation.
type wireLegacy struct {
	ID          *json.RawMessage `json:"id"`
	MongoID     *json.RawMessage `json:"_id"`
	Date        *string          `json:"Date"`
	Time        *string          `json:"Time"`
	BumbleBee   *float64         `json:"Bumble Bee"`
	HoneyBee    *float64         `json:"Honey Bee"`
	LadyBug     *float64         `json:"Lady Bug"`
	Temperature *float64         `json:"Temperature (C)"`
	Humidity    *float64         `json:"Humidity (%)"`
	Location    *string          `json:"Location"`
}

// ParseObservation decodes payload in the current or legacy shape. The
// returned observation may have an empty ID and a zero Timestamp; callers
// assign those. Counts outside 0..MaxSpeciesCount are rejected with
// ErrInvalidReading.
func ParseObservation(payload []byte) (Observation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	if isLegacyShape(fields) {
		return parseLegacy(payload)
	}

	var w wireObservation
	if err := json.Unmarshal(payload, &w); err != nil {
		return Observation{}, fmt.Errorf("decode observation: %w", err)
	}
	if w.Temperature == nil || w.Humidity == nil {
		return Observation{}, ErrNotObservation
	}

	obs := Observation{
		ID:          firstID(w.ID, w.MongoID),
		HiveID:      deref(w.HiveID),
		Temperature: *w.Temperature,
		Humidity:    *w.Humidity,
		Location:    deref(w.Location),
		Notes:       deref(w.Notes),
	}
	var err error
	if obs.BumbleBeeCount, err = checkedCount(FieldBumbleBeeCount, w.BumbleBeeCount); err != nil {
		return Observation{}, err
	}
	if obs.HoneyBeeCount, err = checkedCount(FieldHoneyBeeCount, w.HoneyBeeCount); err != nil {
		return Observation{}, err
	}
	if obs.LadyBugCount, err = checkedCount(FieldLadyBugCount, w.LadyBugCount); err != nil {
		return Observation{}, err
	}
	if w.Timestamp != nil && *w.Timestamp != "" {
		ts, err := ParseTimestamp(*w.Timestamp)
		if err != nil {
			return Observation{}, err
		}
		obs.Timestamp = ts
	}
	return obs, nil
}

func parseLegacy(payload []byte) (Observation, error) {
	var w wireLegacy
	if err := json.Unmarshal(payload, &w); err != nil {
		return Observation{}, fmt.Errorf("decode legacy observation: %w", err)
	}
	if w.Temperature == nil || w.Humidity == nil {
		return Observation{}, ErrNotObservation
	}

	l := LegacyObservation{
		ID:          firstID(w.ID, w.MongoID),
		Date:        deref(w.Date),
		Time:        deref(w.Time),
		Temperature: *w.Temperature,
		Humidity:    *w.Humidity,
		Location:    deref(w.Location),
	}
	var err error
	if l.BumbleBee, err = checkedCount("Bumble Bee", w.BumbleBee); err != nil {
		return Observation{}, err
	}
	if l.HoneyBee, err = checkedCount("Honey Bee", w.HoneyBee); err != nil {
		return Observation{}, err
	}
	if l.LadyBug, err = checkedCount("Lady Bug", w.LadyBug); err != nil {
		return Observation{}, err
	}
	return l.ToObservation(), nil
}

// firstID returns the id as a string whether it was sent as a JSON string or
// number, preferring "id" over "_id".
func firstID(ids ...*json.RawMessage) string {
	for _, raw := range ids {
		if raw == nil || len(*raw) == 0 || string(*raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(*raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		return strings.TrimSpace(string(*raw))
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// checkedCount rounds a wire count. A missing count is zero.
func checkedCount(name string, f *float64) (int, error) {
	if f == nil {
		return 0, nil
	}
	v := *f
	if math.IsNaN(v) || v < 0 || v > MaxSpeciesCount {
		return 0, fmt.Errorf("%w: %s = %v", ErrInvalidReading, name, v)
	}
	return int(math.Round(v)), nil
}

// clampCount rounds a wire count into 0..MaxSpeciesCount.
func clampCount(f *float64) int {
	if f == nil || math.IsNaN(*f) || *f < 0 {
		return 0
	}
	if *f > MaxSpeciesCount {
		return MaxSpeciesCount
	}
	return int(math.Round(*f))
}

// ReshapeExternal decodes one record from the upstream bee-data API. Unlike
// ParseObservation it never rejects a record. Missing readings become zero
// and counts are clamped into range. Missing strings become empty and an
// unreadable timestamp is left zero.
func ReshapeExternal(raw []byte) (Observation, error) {
	var w wireObservation
	if err := json.Unmarshal(raw, &w); err != nil {
		return Observation{}, fmt.Errorf("decode external record: %w", err)
	}
	obs := Observation{
		ID:             firstID(w.ID, w.MongoID),
		HiveID:         deref(w.HiveID),
		BumbleBeeCount: clampCount(w.BumbleBeeCount),
		HoneyBeeCount:  clampCount(w.HoneyBeeCount),
		LadyBugCount:   clampCount(w.LadyBugCount),
		Location:       deref(w.Location),
		Notes:          deref(w.Notes),
	}
	if w.Temperature != nil {
		obs.Temperature = *w.Temperature
	}
	if w.Humidity != nil {
		obs.Humidity = *w.Humidity
	}
	if w.Timestamp != nil && *w.Timestamp != "" {
		if ts, err := ParseTimestamp(*w.Timestamp); err == nil {
			obs.Timestamp = ts
		}
	}
	return obs, nil
}
