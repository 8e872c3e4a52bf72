// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package database

import (
	"context"
	"fmt"
	"time"
)

// CountMessages returns the total number of messages a recipient has received.
func (db *DB) CountMessages(ctx context.Context, recipientID string) (total int, err error) {
	defer observe("count_messages", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = ?`, recipientID).Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("failed to count messages: %w", err))
	}
	return int(n), nil
}

// MessageTimestamps returns created_at of the recipient's messages in
// [from, to), oldest first, in UTC.
func (db *DB) MessageTimestamps(ctx context.Context, recipientID string, from, to time.Time) (ts []time.Time, err error) {
	defer observe("message_timestamps", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT created_at FROM messages
		WHERE recipient_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at`,
		recipientID, from.UTC(), to.UTC())
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query message timestamps: %w", err))
	}
	defer closeWithLog(rows, "timestamp rows")

	ts = make([]time.Time, 0)
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		ts = append(ts, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("error iterating timestamps: %w", err))
	}
	return ts, nil
}

// PollStats returns how many polls the owner has and how many responses they
// have collected in total.
func (db *DB) PollStats(ctx context.Context, ownerID string) (polls, responses int, err error) {
	defer observe("poll_stats", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var p, r int64
	err = db.conn.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM polls WHERE user_id = ?),
			(SELECT COUNT(*) FROM poll_responses pr JOIN polls p ON p.id = pr.poll_id WHERE p.user_id = ?)`,
		ownerID, ownerID).Scan(&p, &r)
	if err != nil {
		return 0, 0, classify(fmt.Errorf("failed to query poll stats: %w", err))
	}
	return int(p), int(r), nil
}
