// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
)

const defaultQueryTimeout = 30 * time.Second

// ensureContext applies the default timeout when ctx has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// observe records duration and error kind of a store operation.
//
//	defer observe("create_message", time.Now(), &err)
func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery(operation, time.Since(start), *err)
}

// inTx runs fn in a transaction, committing on success and rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Warn().Err(rbErr).Msg("Failed to rollback transaction")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		// DuckDB checks unique indexes against other transactions' appends
		// only when committing.
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %w", errUniqueAtCommit, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withConflictRetry retries fn on DuckDB transaction conflicts with
// exponential backoff (1ms, 2ms, 4ms). A unique violation raised at commit is
// retried too: the next attempt sees the winner's row and fails with the
// caller's own error. Exhausted retries are transient errors.
func (db *DB) withConflictRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isTransactionConflict(err) && !errors.Is(err, errUniqueAtCommit) {
			return classify(err)
		}

		lastErr = err
		metrics.RecordDBRetry(operation)
		if attempt == maxRetries-1 {
			break
		}
		backoff := time.Millisecond * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s canceled during retry: %w", ErrTransient, operation, ctx.Err())
		}
	}

	return fmt.Errorf("%w: %s: max retries exceeded: %w", ErrTransient, operation, lastErr)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
