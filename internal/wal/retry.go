// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package wal

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
)

// Publisher republishes queued entries. The MQTT client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	IsConnected() bool
}

// RetryLoop republishes pending entries while the broker is connected. It
// implements suture.Service.
type RetryLoop struct {
	wal       *BadgerWAL
	publisher Publisher
	interval  time.Duration
	maxRetry  int
	ttl       time.Duration
}

// NewRetryLoop creates the retry service.
func NewRetryLoop(w *BadgerWAL, publisher Publisher, cfg *config.WALConfig) *RetryLoop {
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RetryLoop{
		wal:       w,
		publisher: publisher,
		interval:  interval,
		maxRetry:  cfg.MaxRetries,
		ttl:       cfg.EntryTTL,
	}
}

// Serve runs until ctx is canceled.
func (r *RetryLoop) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", r.interval).
		Int("max_retries", r.maxRetry).
		Msg("WAL retry loop started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("WAL retry loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RetryPending(ctx)
		}
	}
}

func (r *RetryLoop) String() string {
	return "wal-retry-loop"
}

// RetryResult summarizes one pass over the pending entries.
type RetryResult struct {
	Succeeded int
	Failed    int
	Exhausted int
	Expired   int
	Waiting   int
}

// RetryPending makes one pass over pending entries. It does nothing while
// the publisher is disconnected.
func (r *RetryLoop) RetryPending(ctx context.Context) RetryResult {
	var res RetryResult
	if !r.publisher.IsConnected() {
		return res
	}

	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		return res
	}
	if len(entries) == 0 {
		return res
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return res
		}
		switch {
		case r.ttl > 0 && time.Since(entry.CreatedAt) > r.ttl:
			if err := r.wal.DeleteEntry(ctx, entry.ID); err != nil {
				logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to delete expired entry")
			}
			res.Expired++
		case r.maxRetry > 0 && entry.Attempts >= r.maxRetry:
			logging.Debug().
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts).
				Msg("WAL retry: entry reached max retries, skipping")
			metrics.RecordWALRetry("exhausted")
			res.Exhausted++
		case !r.readyForRetry(entry):
			res.Waiting++
		default:
			if r.attemptPublish(ctx, entry) {
				res.Succeeded++
			} else {
				res.Failed++
			}
		}
	}

	if res.Succeeded > 0 || res.Failed > 0 || res.Expired > 0 {
		logging.Info().
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Int("expired", res.Expired).
			Int("exhausted", res.Exhausted).
			Msg("WAL retry complete")
	}
	return res
}

func (r *RetryLoop) attemptPublish(ctx context.Context, entry *Entry) bool {
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := r.publisher.Publish(pubCtx, entry.Topic, entry.Payload)
	cancel()

	if err != nil {
		logging.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("WAL retry: failed to publish entry")
		if uerr := r.wal.UpdateAttempt(ctx, entry.ID, err.Error()); uerr != nil {
			logging.Error().Err(uerr).Str("entry_id", entry.ID).Msg("WAL retry: failed to update attempt")
		}
		metrics.RecordWALRetry("failure")
		return false
	}

	if err := r.wal.Confirm(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to confirm entry")
		return false
	}
	metrics.RecordWALRetry("success")
	return true
}

func (r *RetryLoop) readyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return time.Since(entry.LastAttemptAt) >= r.backoff(entry.Attempts)
}

// backoff is interval * 2^(attempts-1), capped at 5 minutes.
func (r *RetryLoop) backoff(attempts int) time.Duration {
	const maxBackoff = 5 * time.Minute
	if attempts <= 0 {
		return 0
	}
	if attempts > 30 {
		return maxBackoff
	}
	d := time.Duration(float64(r.interval) * math.Pow(2, float64(attempts-1)))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
