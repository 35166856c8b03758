// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

/*
Package models defines the data types shared by storage, messaging and the HTTP API.

The central type is Observation: one sensor reading from a hive combining species
counts (bumble bee, honey bee, lady bug), environmental readings (temperature,
humidity) and metadata (hive, location, notes, timestamp).

Two JSON shapes exist in the wild:

	current: {"id", "hive_id", "temperature", "humidity", "bumble_bee_count",
	          "honey_bee_count", "lady_bug_count", "location", "notes", "timestamp"}

	legacy:  {"id", "Date", "Time", "Bumble Bee", "Honey Bee", "Lady Bug",
	          "Total Count", "Temperature (C)", "Humidity (%)", "Location"}

ParseObservation accepts either; LegacyObservation converts in both directions.
ObservationInput and LegacyObservationInput are the validated request bodies of
the insert endpoint; IsLegacyPayload picks between them.

Species counts are bounded by MaxSpeciesCount. ParseObservation rejects counts
outside that range with ErrInvalidReading.
*/
package models
