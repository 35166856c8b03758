// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/models"
)

// testDBSemaphore serializes DuckDB usage across parallel tests. Concurrent
// CGO connections from many tests can hang under CI resource pressure, so the
// slot is held for the whole test and released in t.Cleanup.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleObservation(id string, ts time.Time) models.Observation {
	return models.Observation{
		ID:             id,
		HiveID:         "HIVE-001",
		Temperature:    22.5,
		Humidity:       65,
		BumbleBeeCount: 3,
		HoneyBeeCount:  8,
		LadyBugCount:   1,
		Location:       "North Field",
		Notes:          "sunny",
		Timestamp:      ts,
	}
}

func TestInsertAndGet(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	ts := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	obs := sampleObservation("", ts)
	if err := db.InsertObservation(ctx, &obs); err != nil {
		t.Fatalf("InsertObservation() error = %v", err)
	}
	if obs.ID == "" {
		t.Fatal("InsertObservation should assign an ID")
	}

	got, err := db.GetObservation(ctx, obs.ID)
	if err != nil {
		t.Fatalf("GetObservation() error = %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	got.Timestamp = obs.Timestamp
	if got != obs {
		t.Errorf("GetObservation() = %+v, want %+v", got, obs)
	}
}

func TestInsertAssignsTimestamp(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	before := time.Now().UTC().Add(-time.Second)
	obs := sampleObservation("ts-1", time.Time{})
	if err := db.InsertObservation(context.Background(), &obs); err != nil {
		t.Fatal(err)
	}
	if obs.Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, want about now", obs.Timestamp)
	}
}

func TestInsertDuplicate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	obs := sampleObservation("dup-1", time.Now())
	if err := db.InsertObservation(ctx, &obs); err != nil {
		t.Fatal(err)
	}
	err := db.InsertObservation(ctx, &obs)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert error = %v, want ErrDuplicate", err)
	}
}

func TestGetObservationNotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	_, err := db.GetObservation(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListObservationsNewestFirst(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	batch := make([]models.Observation, 0, 12)
	for i := 0; i < 12; i++ {
		batch = append(batch, sampleObservation(fmt.Sprintf("obs-%02d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	n, err := db.InsertObservations(ctx, batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Fatalf("inserted %d, want 12", n)
	}

	got, err := db.ListObservations(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("not newest first at %d: %v after %v", i, got[i].Timestamp, got[i-1].Timestamp)
		}
	}
	if got[0].ID != "obs-11" {
		t.Errorf("first = %s, want obs-11", got[0].ID)
	}
}

func TestInsertObservationsSkipsDuplicates(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now()
	first := []models.Observation{sampleObservation("a", now), sampleObservation("b", now)}
	if _, err := db.InsertObservations(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := []models.Observation{sampleObservation("b", now), sampleObservation("c", now)}
	n, err := db.InsertObservations(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("inserted %d, want 1", n)
	}
	count, err := db.CountObservations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestListInSensorRange(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now()
	in := sampleObservation("in", now)
	hot := sampleObservation("hot", now)
	hot.Temperature = 45
	dry := sampleObservation("dry", now)
	dry.Humidity = 12
	edge := sampleObservation("edge", now)
	edge.Temperature, edge.Humidity = 30, 90

	if _, err := db.InsertObservations(ctx, []models.Observation{in, hot, dry, edge}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListInSensorRange(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]bool{}
	for i := range got {
		ids[got[i].ID] = true
	}
	if len(got) != 2 || !ids["in"] || !ids["edge"] {
		t.Errorf("ListInSensorRange ids = %v, want in and edge", ids)
	}
}

func TestFieldSummaries(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := sampleObservation("a", ts)
	b := sampleObservation("b", ts.Add(time.Hour))
	b.HiveID = "HIVE-002"
	b.Temperature = 24.5
	c := sampleObservation("c", ts)
	c.Location = ""

	if _, err := db.InsertObservations(ctx, []models.Observation{a, b, c}); err != nil {
		t.Fatal(err)
	}

	got, err := db.FieldSummaries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	north := got[0]
	if north.Location != "North Field" || north.Observations != 2 || north.Hives != 2 {
		t.Errorf("north = %+v", north)
	}
	if north.AvgTemperature != 23.5 {
		t.Errorf("AvgTemperature = %v, want 23.5", north.AvgTemperature)
	}
	if north.TotalBees != 24 {
		t.Errorf("TotalBees = %d, want 24", north.TotalBees)
	}
	if !north.LastSeen.Equal(ts.Add(time.Hour)) {
		t.Errorf("LastSeen = %v", north.LastSeen)
	}
	if got[1].Location != UnassignedLocation {
		t.Errorf("second location = %q, want %q", got[1].Location, UnassignedLocation)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	sample := []models.Observation{sampleObservation("", time.Now()), sampleObservation("", time.Now())}
	n, err := db.SeedIfEmpty(ctx, sample)
	if err != nil || n != 2 {
		t.Fatalf("first seed = %d, %v", n, err)
	}
	n, err = db.SeedIfEmpty(ctx, sample)
	if err != nil || n != 0 {
		t.Errorf("second seed = %d, %v, want 0", n, err)
	}
}

func TestClosedDatabase(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	ctx := context.Background()
	if err := db.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() = %v, want ErrClosed", err)
	}
	if _, err := db.ListObservations(ctx, 10); !errors.Is(err, ErrClosed) {
		t.Errorf("ListObservations() = %v, want ErrClosed", err)
	}
	obs := sampleObservation("x", time.Now())
	if err := db.InsertObservation(ctx, &obs); err == nil {
		t.Error("insert on closed db should fail")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	t.Parallel()
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "bees.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %s", db.Path())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("driver: bad connection"), true},
		{errors.New("sql: database is closed"), true},
		{errors.New("Binder Error: column not found"), false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
