// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
database_schema.go - Schema bootstrap

Tables:
  - profiles: public identities, username stored lowercased and UNIQUE
  - messages: anonymous messages, no sender column by construction
  - polls: owner-run polls with optional expiry
  - poll_options: closed, ordered option set (position = creation order)
  - poll_responses: votes, UNIQUE(poll_id, respondent_id)

References (messages.recipient_id, polls.user_id, poll_options.poll_id,
poll_responses.poll_id/option_id) are checked inside the writing transaction
rather than declared as FOREIGN KEY constraints. DuckDB has no ON DELETE
CASCADE and rejects deleting a parent row whose children were removed earlier
in the same transaction, so DeletePoll removes responses, options and the poll
itself in one transaction instead.

Only columns that never change after insert are indexed. DuckDB rewrites
updates touching indexed columns as delete+insert, which the is_read,
is_answered and is_active flips must avoid.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		content TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT false,
		is_answered BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS polls (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		question TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS poll_options (
		id TEXT PRIMARY KEY,
		poll_id TEXT NOT NULL,
		option_text TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS poll_responses (
		id TEXT PRIMARY KEY,
		poll_id TEXT NOT NULL,
		option_id TEXT NOT NULL,
		respondent_id TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (poll_id, respondent_id)
	)`,
}

var indexCreationQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_messages_recipient_created ON messages(recipient_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_polls_user_created ON polls(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_options_poll ON poll_options(poll_id)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_responses_poll_option ON poll_responses(poll_id, option_id)`,
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()
	for _, q := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create table: %s: %w", q, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()
	for _, q := range indexCreationQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", q, err)
		}
	}
	return nil
}
