// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package database is the DuckDB-backed store for profiles, anonymous
// messages, polls, poll options and poll responses.
//
// The store owns every uniqueness and referential rule: one profile per
// username, one response per (poll, respondent) when a respondent is known,
// options that belong to their poll, and cascade cleanup when a poll is
// deleted. Callers receive errors classified by ErrorKind.
//
// A newly committed message is handed to the configured MessagePublisher after
// the commit returns, so no subscriber can see an event for an uncommitted row.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/logging"
)

// DB wraps the DuckDB connection pool.
type DB struct {
	conn  *sql.DB
	cfg   *config.DatabaseConfig
	polls config.PollsConfig

	clockMu   sync.Mutex
	clock     func() time.Time
	lastStamp time.Time

	publisherMu     sync.RWMutex
	publisher       MessagePublisher
	publishFailures atomic.Int64
}

// New opens (or creates) the database and bootstraps the schema.
func New(cfg *config.DatabaseConfig, polls config.PollsConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if polls.MaxOptions < MinPollOptions {
		polls.MaxOptions = defaultMaxPollOptions
	}
	if polls.RespondentPolicy == "" {
		polls.RespondentPolicy = config.RespondentPolicyAllowAnonymous
	}

	db := &DB{
		conn:  conn,
		cfg:   cfg,
		polls: polls,
		clock: time.Now,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("respondent_policy", polls.RespondentPolicy).
		Msg("Database initialized")
	return db, nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	return db.createIndexes()
}

// Close checkpoints the WAL and closes the pool.
func (db *DB) Close() error {
	if db.cfg.Path != ":memory:" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Checkpoint(ctx); err != nil {
			logging.Warn().Err(err).Msg("Checkpoint before close failed")
		}
		cancel()
	}
	return db.conn.Close()
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return nil
}

// Conn exposes the pool for health checks and tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// RespondentPolicy returns the configured policy for votes without a respondent id.
func (db *DB) RespondentPolicy() string {
	return db.polls.RespondentPolicy
}

// SetClock replaces the time source. Intended for tests.
func (db *DB) SetClock(clock func() time.Time) {
	db.clockMu.Lock()
	defer db.clockMu.Unlock()
	db.clock = clock
	db.lastStamp = time.Time{}
}

// now returns the current time at DuckDB TIMESTAMP precision.
func (db *DB) now() time.Time {
	db.clockMu.Lock()
	defer db.clockMu.Unlock()
	return db.clock().UTC().Truncate(time.Microsecond)
}

// stamp returns a creation timestamp strictly later than any previous stamp,
// so created_at is monotonic for the lifetime of the store.
func (db *DB) stamp() time.Time {
	db.clockMu.Lock()
	defer db.clockMu.Unlock()
	t := db.clock().UTC().Truncate(time.Microsecond)
	if !t.After(db.lastStamp) {
		t = db.lastStamp.Add(time.Microsecond)
	}
	db.lastStamp = t
	return t
}
