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

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
	"github.com/tomtom215/whisperbox/internal/models"
)

// CastVote records one vote on pollID for optionID.
//
// A respondent may vote once per poll. When respondentID is nil the vote is
// fully anonymous and never collides with any other vote; whether such votes
// are accepted depends on the configured respondent policy.
//
// The duplicate check and the insert are one atomic step: of any number of
// concurrent votes by the same respondent exactly one succeeds and the rest
// get ErrDuplicateVote.
func (db *DB) CastVote(ctx context.Context, pollID, optionID string, respondentID *string) (resp *models.PollResponse, err error) {
	defer observe("cast_vote", time.Now(), &err)
	defer func() { metrics.RecordVote(voteOutcome(err)) }()

	if respondentID != nil {
		r := strings.TrimSpace(*respondentID)
		if r == "" {
			respondentID = nil
		} else {
			respondentID = &r
		}
	}
	if respondentID == nil && db.polls.RespondentPolicy == config.RespondentPolicyRequireRespondent {
		return nil, ErrRespondentRequired
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	r := &models.PollResponse{
		ID:           uuid.New().String(),
		PollID:       pollID,
		OptionID:     optionID,
		RespondentID: respondentID,
	}

	err = db.withConflictRetry(ctx, "cast_vote", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			p, err := scanPoll(tx.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = ?`, pollID))
			if err != nil {
				return err
			}
			if !p.AcceptsVotes(db.now()) {
				return ErrPollInactive
			}

			var belongs bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM poll_options WHERE id = ? AND poll_id = ?)`,
				optionID, pollID).Scan(&belongs); err != nil {
				return fmt.Errorf("failed to check poll option: %w", err)
			}
			if !belongs {
				return ErrOptionNotInPoll
			}

			r.CreatedAt = db.stamp()
			res, err := tx.ExecContext(ctx, `INSERT INTO poll_responses (id, poll_id, option_id, respondent_id, created_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (poll_id, respondent_id) DO NOTHING`,
				r.ID, r.PollID, r.OptionID, nullString(r.RespondentID), r.CreatedAt)
			if err != nil {
				if isUniqueConstraintError(err) {
					return ErrDuplicateVote
				}
				return fmt.Errorf("failed to insert vote: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return ErrDuplicateVote
			}
			return nil
		})
	})
	if err != nil && respondentID != nil && lostVoteRace(err) {
		if voted, vErr := db.HasVoted(ctx, pollID, *respondentID); vErr == nil && voted {
			err = ErrDuplicateVote
		}
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateVote) {
			logging.Ctx(ctx).Debug().Str("poll_id", pollID).Msg("Duplicate vote rejected")
		}
		return nil, err
	}
	return r, nil
}

// lostVoteRace reports a failure that a concurrent vote by the same
// respondent can cause: a commit-time unique violation, or retries exhausted
// by transaction conflicts.
func lostVoteRace(err error) bool {
	return !errors.Is(err, ErrDuplicateVote) &&
		(errors.Is(err, errUniqueAtCommit) || errors.Is(err, ErrTransient))
}

func voteOutcome(err error) string {
	switch {
	case err == nil:
		return "recorded"
	case errors.Is(err, ErrDuplicateVote):
		return "duplicate"
	default:
		return "rejected"
	}
}

// VoteCounts returns the number of responses per option id for a poll.
// Options without votes are absent from the map.
func (db *DB) VoteCounts(ctx context.Context, pollID string) (counts map[string]int, err error) {
	defer observe("vote_counts", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT option_id, COUNT(*) FROM poll_responses WHERE poll_id = ? GROUP BY option_id`, pollID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to count votes: %w", err))
	}
	defer closeWithLog(rows, "vote rows")

	counts = make(map[string]int)
	for rows.Next() {
		var (
			optionID string
			n        int64
		)
		if err := rows.Scan(&optionID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[optionID] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("error iterating vote counts: %w", err))
	}
	return counts, nil
}

// HasVoted reports whether respondentID already has a response on pollID.
func (db *DB) HasVoted(ctx context.Context, pollID, respondentID string) (voted bool, err error) {
	defer observe("has_voted", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM poll_responses WHERE poll_id = ? AND respondent_id = ?)`,
		pollID, respondentID).Scan(&voted)
	if err != nil {
		return false, classify(fmt.Errorf("failed to check vote: %w", err))
	}
	return voted, nil
}
