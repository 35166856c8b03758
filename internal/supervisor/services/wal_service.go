// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/wal"
)

// DefaultCompactionInterval is how often the WAL value log is collected.
const DefaultCompactionInterval = 10 * time.Minute

// WALRetrier is satisfied by *wal.RetryLoop.
type WALRetrier interface {
	RetryPending(ctx context.Context) wal.RetryResult
	Serve(ctx context.Context) error
}

// WALRetryLoopService drains the WAL once on every (re)start and then
// hands over to the periodic retry loop. Publishes queued before a restart
// are therefore retried without waiting a full interval.
type WALRetryLoopService struct {
	loop WALRetrier
}

// NewWALRetryLoopService wraps loop.
func NewWALRetryLoopService(loop WALRetrier) *WALRetryLoopService {
	return &WALRetryLoopService{loop: loop}
}

// Serve implements suture.Service.
func (s *WALRetryLoopService) Serve(ctx context.Context) error {
	res := s.loop.RetryPending(ctx)
	if res.Succeeded > 0 || res.Failed > 0 {
		logging.Info().
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Msg("WAL startup drain complete")
	}
	return s.loop.Serve(ctx)
}

func (s *WALRetryLoopService) String() string {
	return "wal-retry-loop"
}

// GarbageCollector is satisfied by *wal.BadgerWAL.
type GarbageCollector interface {
	RunGC() error
}

// WALCompactorService periodically reclaims BadgerDB value log space left
// behind by confirmed entries.
type WALCompactorService struct {
	gc       GarbageCollector
	interval time.Duration
}

// NewWALCompactorService wraps gc. A non-positive interval uses
// DefaultCompactionInterval.
func NewWALCompactorService(gc GarbageCollector, interval time.Duration) *WALCompactorService {
	if interval <= 0 {
		interval = DefaultCompactionInterval
	}
	return &WALCompactorService{gc: gc, interval: interval}
}

// Serve implements suture.Service. A GC failure ends Serve so that the
// supervisor backs off before the next attempt.
func (s *WALCompactorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				return fmt.Errorf("wal compaction: %w", err)
			}
			logging.Debug().Msg("WAL value log GC complete")
		}
	}
}

func (s *WALCompactorService) String() string {
	return "wal-compactor"
}
