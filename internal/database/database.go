// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/biodscan/internal/config"
	"github.com/tomtom215/biodscan/internal/logging"
)

// DB wraps the DuckDB connection and provides data access methods
type DB struct {
	mu     sync.RWMutex
	conn   *sql.DB
	cfg    *config.DatabaseConfig
	closed bool

	reconnectMu       sync.Mutex
	maxReconnectTries int
	reconnectDelay    time.Duration
}

// New opens the database at cfg.Path (":memory:" for an in-memory store) and
// creates the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != ":memory:" {
		// 0750 per gosec G301
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := open(cfg)
	if err != nil {
		return nil, err
	}

	db := &DB{
		conn:              conn,
		cfg:               cfg,
		maxReconnectTries: 3,
		reconnectDelay:    2 * time.Second,
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Str("name", cfg.Name).
		Msg("Database ready")

	return db, nil
}

func connString(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}
	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, maxMemory)
}

func open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configureConnectionPool(conn)
	return conn, nil
}

// configureConnectionPool sets connection pool parameters
func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates tables and indexes, then checkpoints so the schema is
// not left in the DuckDB WAL.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	if err := db.createIndexes(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// handle returns the live connection or ErrClosed.
func (db *DB) handle() (*sql.DB, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed || db.conn == nil {
		return nil, ErrClosed
	}
	return db.conn, nil
}

// Conn returns the underlying connection, or nil once closed.
func (db *DB) Conn() *sql.DB {
	conn, _ := db.handle()
	return conn
}

// Path returns the configured database path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	conn, err := db.handle()
	if err != nil {
		return err
	}
	return conn.PingContext(ctx)
}

// Checkpoint forces a DuckDB WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	conn, err := db.handle()
	if err != nil {
		return err
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	if _, err := conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the connection. Calling Close twice is safe.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil && !errors.Is(err, ErrClosed) {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// ensureContext adds a 30-second timeout when ctx has no deadline
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// withReconnect runs fn and, if it fails with a connection error, reconnects
// once and runs it again.
func (db *DB) withReconnect(ctx context.Context, fn func(conn *sql.DB) error) error {
	conn, err := db.handle()
	if err != nil {
		return err
	}
	err = fn(conn)
	if !isConnectionError(err) {
		return err
	}

	logging.Warn().Err(err).Msg("Database connection lost, reconnecting")
	if rerr := db.reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w (reconnect failed: %v)", err, rerr)
	}
	conn, herr := db.handle()
	if herr != nil {
		return herr
	}
	return fn(conn)
}

// reconnect re-establishes the connection with exponential backoff
func (db *DB) reconnect(ctx context.Context) error {
	db.reconnectMu.Lock()
	defer db.reconnectMu.Unlock()

	if err := db.Ping(ctx); err == nil {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < db.maxReconnectTries; attempt++ {
		if attempt > 0 {
			delay := db.reconnectDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		conn, err := open(db.cfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.PingContext(pingCtx)
			cancel()
			if err != nil {
				closeQuietly(conn)
			}
		}
		if err != nil {
			lastErr = fmt.Errorf("reconnect attempt %d failed: %w", attempt+1, err)
			continue
		}

		db.mu.Lock()
		if db.closed {
			db.mu.Unlock()
			closeQuietly(conn)
			return ErrClosed
		}
		old := db.conn
		db.conn = conn
		db.mu.Unlock()
		closeWithLog(old, "database connection")

		if err := db.initialize(); err != nil {
			return fmt.Errorf("failed to initialize after reconnect: %w", err)
		}
		logging.Info().Int("attempt", attempt+1).Msg("Database reconnected")
		return nil
	}

	return fmt.Errorf("failed to reconnect after %d attempts: %w", db.maxReconnectTries, lastErr)
}
