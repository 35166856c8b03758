// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
	"github.com/tomtom215/biodscan/internal/models"
)

// Publisher sends observations to the broker.
type Publisher interface {
	PublishObservation(ctx context.Context, obs *models.Observation) (topic string, payload []byte, err error)
}

// Outbox queues payloads that could not be published.
type Outbox interface {
	Write(ctx context.Context, topic string, payload []byte) (string, error)
}

// Store writes observations directly when there is no broker.
type Store interface {
	InsertObservations(ctx context.Context, batch []models.Observation) (int, error)
}

// Scheduler runs the generator on a cron schedule.
type Scheduler struct {
	cfg       config.SimulatorConfig
	gen       *Generator
	publisher Publisher
	outbox    Outbox
	store     Store
	nowFunc   func() time.Time
}

// NewScheduler returns a scheduler that publishes through publisher, or
// stores through store when publisher is nil. outbox may be nil.
func NewScheduler(cfg *config.SimulatorConfig, gen *Generator, publisher Publisher, outbox Outbox, store Store) *Scheduler {
	return &Scheduler{
		cfg:       *cfg,
		gen:       gen,
		publisher: publisher,
		outbox:    outbox,
		store:     store,
		nowFunc:   time.Now,
	}
}

// RunOnce generates one batch and delivers it. It returns how many
// observations were published, queued or stored.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	batch := s.gen.Generate(s.nowFunc(), s.cfg.Hives)

	var (
		delivered int
		err       error
	)
	if s.publisher == nil {
		delivered, err = s.store.InsertObservations(ctx, batch)
	} else {
		delivered, err = s.publish(ctx, batch)
	}

	metrics.RecordSimulatorRun(len(batch), err)
	if err != nil {
		logging.Warn().Err(err).Int("delivered", delivered).Int("generated", len(batch)).Msg("Simulator run incomplete")
		return delivered, err
	}
	logging.Debug().Int("generated", len(batch)).Msg("Simulator run complete")
	return delivered, nil
}

func (s *Scheduler) publish(ctx context.Context, batch []models.Observation) (int, error) {
	var (
		delivered int
		errs      []error
	)
	for i := range batch {
		topic, payload, err := s.publisher.PublishObservation(ctx, &batch[i])
		if err == nil {
			delivered++
			continue
		}
		if s.outbox != nil && payload != nil {
			_, walErr := s.outbox.Write(ctx, topic, payload)
			if walErr == nil {
				delivered++
				continue
			}
			err = errors.Join(err, walErr)
		}
		errs = append(errs, fmt.Errorf("%s: %w", batch[i].HiveID, err))
	}
	return delivered, errors.Join(errs...)
}

// Serve runs the cron schedule until ctx ends. It implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule simulator %q: %w", s.cfg.Schedule, err)
	}

	logging.Info().Str("schedule", s.cfg.Schedule).Int("hives", s.cfg.Hives).Bool("publish", s.publisher != nil).Msg("Starting simulator")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) String() string {
	return "simulator"
}

// cronLogger adapts cron.Logger onto zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
