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

	"github.com/google/uuid"

	"github.com/tomtom215/whisperbox/internal/models"
)

const (
	// MinPollOptions is the fewest non-empty options a poll may have.
	MinPollOptions = 2

	defaultMaxPollOptions = 10
)

const pollColumns = `id, user_id, question, is_active, created_at, expires_at`

// NormalizePollOptions trims every option and drops the empty ones, keeping order.
func NormalizePollOptions(options []string) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// CreatePoll inserts a poll and its options atomically. Options keep the order
// they were given in.
func (db *DB) CreatePoll(ctx context.Context, ownerID string, req *models.CreatePollRequest) (poll *models.Poll, err error) {
	defer observe("create_poll", time.Now(), &err)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	options := NormalizePollOptions(req.Options)
	if len(options) < MinPollOptions {
		return nil, ErrTooFewOptions
	}
	if len(options) > db.polls.MaxOptions {
		return nil, fmt.Errorf("%w (max %d)", ErrTooManyOptions, db.polls.MaxOptions)
	}

	now := db.now()
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC().Truncate(time.Microsecond)
		if !t.After(now) {
			return nil, ErrExpiryInPast
		}
		expiresAt = &t
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	p := &models.Poll{
		ID:        uuid.New().String(),
		UserID:    ownerID,
		Question:  question,
		IsActive:  true,
		ExpiresAt: expiresAt,
		Options:   make([]models.PollOption, len(options)),
	}
	for i, text := range options {
		p.Options[i] = models.PollOption{
			ID:         uuid.New().String(),
			PollID:     p.ID,
			OptionText: text,
			Position:   i,
		}
	}

	err = db.withConflictRetry(ctx, "create_poll", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = ?)`, ownerID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check poll owner: %w", err)
			}
			if !exists {
				return ErrProfileNotFound
			}

			p.CreatedAt = db.stamp()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO polls (`+pollColumns+`) VALUES (?, ?, ?, true, ?, ?)`,
				p.ID, p.UserID, p.Question, p.CreatedAt, nullTime(p.ExpiresAt)); err != nil {
				return fmt.Errorf("failed to insert poll: %w", err)
			}

			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO poll_options (id, poll_id, option_text, position) VALUES (?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare option insert: %w", err)
			}
			defer closeWithLog(stmt, "statement")

			for _, o := range p.Options {
				if _, err := stmt.ExecContext(ctx, o.ID, o.PollID, o.OptionText, o.Position); err != nil {
					return fmt.Errorf("failed to insert poll option: %w", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPoll returns a poll with its options in creation order. Polls are public.
func (db *DB) GetPoll(ctx context.Context, id string) (poll *models.Poll, err error) {
	defer observe("get_poll", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	p, err := scanPoll(db.conn.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := db.attachOptions(ctx, []*models.Poll{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPolls returns every poll the owner created, newest first.
func (db *DB) ListPolls(ctx context.Context, ownerID string) (polls []models.Poll, err error) {
	defer observe("list_polls", time.Now(), &err)
	return db.listPolls(ctx, `SELECT `+pollColumns+` FROM polls WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListActivePolls returns the owner's polls that currently accept votes,
// newest first. This is what a profile's public page shows.
func (db *DB) ListActivePolls(ctx context.Context, ownerID string) (polls []models.Poll, err error) {
	defer observe("list_active_polls", time.Now(), &err)
	return db.listPolls(ctx, `SELECT `+pollColumns+` FROM polls
		WHERE user_id = ? AND is_active = true AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at DESC, id DESC`, ownerID, db.now())
}

func (db *DB) listPolls(ctx context.Context, query string, args ...any) ([]models.Poll, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list polls: %w", err))
	}
	defer closeWithLog(rows, "poll rows")

	ptrs := make([]*models.Poll, 0)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("error iterating polls: %w", err))
	}
	if err := db.attachOptions(ctx, ptrs); err != nil {
		return nil, err
	}

	polls := make([]models.Poll, len(ptrs))
	for i, p := range ptrs {
		polls[i] = *p
	}
	return polls, nil
}

// attachOptions loads options for all polls in one query.
func (db *DB) attachOptions(ctx context.Context, polls []*models.Poll) error {
	if len(polls) == 0 {
		return nil
	}
	byID := make(map[string]*models.Poll, len(polls))
	args := make([]any, len(polls))
	for i, p := range polls {
		p.Options = make([]models.PollOption, 0)
		byID[p.ID] = p
		args[i] = p.ID
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, poll_id, option_text, position FROM poll_options
		WHERE poll_id IN (`+placeholders(len(polls))+`)
		ORDER BY poll_id, position`, args...)
	if err != nil {
		return classify(fmt.Errorf("failed to load poll options: %w", err))
	}
	defer closeWithLog(rows, "option rows")

	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.OptionText, &o.Position); err != nil {
			return fmt.Errorf("failed to scan poll option: %w", err)
		}
		if p, ok := byID[o.PollID]; ok {
			p.Options = append(p.Options, o)
		}
	}
	if err := rows.Err(); err != nil {
		return classify(fmt.Errorf("error iterating poll options: %w", err))
	}
	return nil
}

// ToggleActive flips is_active and returns the poll's new state. Owner only.
func (db *DB) ToggleActive(ctx context.Context, pollID, requesterID string) (poll *models.Poll, err error) {
	defer observe("toggle_poll", time.Now(), &err)
	qctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.withConflictRetry(qctx, "toggle_poll", func(ctx context.Context) error {
		var active bool
		err := db.conn.QueryRowContext(ctx,
			`UPDATE polls SET is_active = NOT is_active WHERE id = ? AND user_id = ? RETURNING is_active`,
			pollID, requesterID).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPollAccessDenied
		}
		if err != nil {
			return fmt.Errorf("failed to toggle poll: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetPoll(ctx, pollID)
}

// DeletePoll removes a poll together with its options and responses in one
// transaction. Owner only.
func (db *DB) DeletePoll(ctx context.Context, pollID, requesterID string) (err error) {
	defer observe("delete_poll", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, "delete_poll", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			var owned bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM polls WHERE id = ? AND user_id = ?)`,
				pollID, requesterID).Scan(&owned); err != nil {
				return fmt.Errorf("failed to check poll owner: %w", err)
			}
			if !owned {
				return ErrPollAccessDenied
			}

			for _, q := range []string{
				`DELETE FROM poll_responses WHERE poll_id = ?`,
				`DELETE FROM poll_options WHERE poll_id = ?`,
				`DELETE FROM polls WHERE id = ?`,
			} {
				if _, err := tx.ExecContext(ctx, q, pollID); err != nil {
					return fmt.Errorf("failed to delete poll: %w", err)
				}
			}
			return nil
		})
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*models.Poll, error) {
	var (
		p         models.Poll
		expiresAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Question, &p.IsActive, &p.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to scan poll: %w", err))
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		p.ExpiresAt = &t
	}
	return &p, nil
}
