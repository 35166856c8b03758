// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package wal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
	"github.com/tomtom215/biodscan/internal/metrics"
)

var (
	// ErrWALClosed is returned by every operation after Close.
	ErrWALClosed = errors.New("wal is closed")

	// ErrEntryNotFound is returned when an entry ID is not pending.
	ErrEntryNotFound = errors.New("wal entry not found")

	// ErrEmptyEntryID is returned for an empty entry ID.
	ErrEmptyEntryID = errors.New("wal entry id is empty")

	// ErrEmptyTopic is returned when writing without a topic.
	ErrEmptyTopic = errors.New("wal entry topic is empty")
)

// Entry is one queued publish.
type Entry struct {
	ID            string     `json:"id"`
	Topic         string     `json:"topic"`
	Payload       []byte     `json:"payload"`
	CreatedAt     time.Time  `json:"created_at"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt time.Time  `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Confirmed     bool       `json:"confirmed"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// Stats contains WAL counters for status endpoints and metrics.
type Stats struct {
	PendingCount   int64 `json:"pending_count"`
	ConfirmedCount int64 `json:"confirmed_count"`
	TotalWrites    int64 `json:"total_writes"`
	TotalConfirms  int64 `json:"total_confirms"`
	TotalRetries   int64 `json:"total_retries"`
	DBSizeBytes    int64 `json:"db_size_bytes"`
}

// prefix keys for entry states
const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// confirmedRetention is how long a confirmed entry is kept for inspection.
const confirmedRetention = time.Hour

// BadgerWAL is the BadgerDB-backed outbox.
type BadgerWAL struct {
	db  *badger.DB
	cfg config.WALConfig

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64
	totalRetries  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the WAL at cfg.Path.
func Open(cfg *config.WALConfig) (*BadgerWAL, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	// small footprint: the outbox only holds publishes made during outages
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	w := &BadgerWAL{db: db, cfg: *cfg}
	stats := w.Stats()

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", stats.PendingCount).
		Msg("WAL opened")
	return w, nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

// Write persists a publish and returns its entry ID.
func (w *BadgerWAL) Write(ctx context.Context, topic string, payload []byte) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if topic == "" {
		return "", ErrEmptyTopic
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
		if w.cfg.EntryTTL > 0 {
			e = e.WithTTL(w.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	w.totalWrites.Add(1)
	w.refreshPendingGauge()
	logging.Debug().Str("entry_id", entry.ID).Str("topic", topic).Msg("WAL entry written")
	return entry.ID, nil
}

func readEntry(item *badger.Item) (Entry, error) {
	var entry Entry
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	return entry, err
}

// Confirm moves a pending entry to the confirmed state.
func (w *BadgerWAL) Confirm(ctx context.Context, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	pendingKey := []byte(prefixPending + entryID)
	err := w.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get pending entry: %w", err)
		}
		entry, err := readEntry(item)
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		now := time.Now().UTC()
		entry.Confirmed = true
		entry.ConfirmedAt = &now
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal confirmed entry: %w", err)
		}

		e := badger.NewEntry([]byte(prefixConfirmed+entryID), data).WithTTL(confirmedRetention)
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set confirmed entry: %w", err)
		}
		return txn.Delete(pendingKey)
	})
	if err != nil {
		return err
	}

	w.totalConfirms.Add(1)
	w.refreshPendingGauge()
	return nil
}

// GetPending returns all unconfirmed entries, oldest first.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := readEntry(it.Item())
			if err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("WAL failed to unmarshal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// UpdateAttempt records a failed publish attempt. The entry keeps its
// remaining TTL.
func (w *BadgerWAL) UpdateAttempt(ctx context.Context, entryID, lastError string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	key := []byte(prefixPending + entryID)
	err := w.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		entry, err := readEntry(item)
		if err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		entry.LastError = lastError
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		e := badger.NewEntry(key, data)
		if exp := item.ExpiresAt(); exp > 0 {
			remaining := time.Until(time.Unix(int64(exp), 0))
			if remaining <= 0 {
				remaining = time.Second
			}
			e = e.WithTTL(remaining)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return err
	}

	w.totalRetries.Add(1)
	return nil
}

// DeleteEntry removes an entry in either state.
func (w *BadgerWAL) DeleteEntry(ctx context.Context, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	err := w.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixPending, prefixConfirmed} {
			key := []byte(prefix + entryID)
			if _, err := txn.Get(key); err == nil {
				return txn.Delete(key)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return ErrEntryNotFound
	})
	if err == nil {
		w.refreshPendingGauge()
	}
	return err
}

func (w *BadgerWAL) countPrefix(prefix string) int64 {
	var n int64
	if err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			n++
		}
		return nil
	}); err != nil {
		logging.Warn().Err(err).Msg("WAL failed to count entries")
	}
	return n
}

// PendingCount returns the number of unconfirmed entries, or 0 once closed.
func (w *BadgerWAL) PendingCount() int64 {
	if w.checkOpen() != nil {
		return 0
	}
	return w.countPrefix(prefixPending)
}

func (w *BadgerWAL) refreshPendingGauge() {
	metrics.SetWALPending(w.countPrefix(prefixPending))
}

// Stats returns current WAL statistics.
func (w *BadgerWAL) Stats() Stats {
	if w.checkOpen() != nil {
		return Stats{}
	}
	lsm, vlog := w.db.Size()
	stats := Stats{
		PendingCount:   w.countPrefix(prefixPending),
		ConfirmedCount: w.countPrefix(prefixConfirmed),
		TotalWrites:    w.totalWrites.Load(),
		TotalConfirms:  w.totalConfirms.Load(),
		TotalRetries:   w.totalRetries.Load(),
		DBSizeBytes:    lsm + vlog,
	}
	metrics.SetWALPending(stats.PendingCount)
	return stats
}

// Config returns the WAL configuration.
func (w *BadgerWAL) Config() config.WALConfig {
	return w.cfg
}

// RunGC reclaims value log space until nothing is left to rewrite.
func (w *BadgerWAL) RunGC() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	for {
		err := w.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
	}
}

// Close closes the WAL. It waits at most 30 seconds for BadgerDB.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- w.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("WAL closed")
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("badgerdb close timeout after %v", 30*time.Second)
	}
}
