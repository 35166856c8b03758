// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

// Package simulator produces plausible hive readings for demos and for
// exercising the ingest path without physical sensors.
package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/biodscan/internal/models"
)

// DefaultLocation is used when no location is configured.
const DefaultLocation = "North Field"

// Daytime is 08:00 through 18:59; bees are three times as active.
const (
	dayStartHour = 8
	dayEndHour   = 18

	dayBeeFactor   = 1.5
	nightBeeFactor = 0.5
)

// Generator makes observations from an injectable random source.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	location string
}

// NewGenerator returns a generator using src. A nil src is seeded from the
// clock.
func NewGenerator(location string, src rand.Source) *Generator {
	if location == "" {
		location = DefaultLocation
	}
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}
	return &Generator{rng: rand.New(src), location: location}
}

// HiveID formats the 1-based hive number as HIVE-001.
func HiveID(n int) string {
	return fmt.Sprintf("HIVE-%03d", n)
}

// Generate returns n readings stamped now, one per hive HIVE-001..HIVE-n.
// Temperature stays in 10..30 and humidity in 30..90, both to one decimal;
// humidity falls as temperature rises.
func (g *Generator) Generate(now time.Time, n int) []models.Observation {
	g.mu.Lock()
	defer g.mu.Unlock()

	hour := now.Hour()
	daytime := hour >= dayStartHour && hour <= dayEndHour

	sign := -1.0
	beeFactor := nightBeeFactor
	if daytime {
		sign = 1.0
		beeFactor = dayBeeFactor
	}
	baseTemp := 20 + 8*sign*g.uniform(0.5, 1)

	out := make([]models.Observation, 0, n)
	for i := 1; i <= n; i++ {
		temperature := round1(g.uniform(
			math.Max(models.MinSensorTemperature, baseTemp-8),
			math.Min(models.MaxSensorTemperature, baseTemp+8),
		))
		baseHumidity := 70 - (temperature-20)*2
		humidity := round1(g.uniform(
			math.Max(models.MinSensorHumidity, baseHumidity-20),
			math.Min(models.MaxSensorHumidity, baseHumidity+20),
		))

		hive := HiveID(i)
		out = append(out, models.Observation{
			HiveID:         hive,
			Temperature:    temperature,
			Humidity:       humidity,
			BumbleBeeCount: g.intUpTo(int(5 * beeFactor)),
			HoneyBeeCount:  g.intUpTo(int(10 * beeFactor)),
			LadyBugCount:   g.intUpTo(int(2 * beeFactor)),
			Location:       g.location,
			Notes:          "Simulated reading for " + hive,
			Timestamp:      now.UTC(),
		})
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Float64()*(hi-lo)
}

// intUpTo returns a value in [0, n].
func (g *Generator) intUpTo(n int) int {
	if n <= 0 {
		return 0
	}
	return g.rng.IntN(n + 1)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
