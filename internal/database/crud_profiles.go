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

	"github.com/tomtom215/whisperbox/internal/models"
	"github.com/tomtom215/whisperbox/internal/validation"
)

// NormalizeUsername lowercases and trims a username. Usernames are matched
// case-insensitively everywhere.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

const profileColumns = `id, username, full_name, avatar_url, bio, website, created_at, updated_at`

// CreateProfile records the profile for a newly created account. id is the
// identity collaborator's user id. The username cannot be changed afterwards.
func (db *DB) CreateProfile(ctx context.Context, id string, req *models.CreateProfileRequest) (profile *models.Profile, err error) {
	defer observe("create_profile", time.Now(), &err)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingIdentity
	}
	username := NormalizeUsername(req.Username)
	if !validation.ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := db.now()
	p := &models.Profile{
		ID:        id,
		Username:  username,
		FullName:  strings.TrimSpace(req.FullName),
		AvatarURL: strings.TrimSpace(req.AvatarURL),
		Bio:       strings.TrimSpace(req.Bio),
		Website:   strings.TrimSpace(req.Website),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.withConflictRetry(ctx, "create_profile", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			if err := profileConflict(ctx, tx, p.ID, p.Username); err != nil {
				return err
			}

			_, err := tx.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Username, p.FullName, p.AvatarURL, p.Bio, p.Website, p.CreatedAt, p.UpdatedAt)
			if err != nil {
				if isUniqueConstraintError(err) {
					return ErrUsernameTaken
				}
				return fmt.Errorf("failed to insert profile: %w", err)
			}
			return nil
		})
	})
	if err != nil && (errors.Is(err, errUniqueAtCommit) || errors.Is(err, ErrTransient)) {
		// Lost a race with a concurrent signup; report which key it took.
		if cErr := profileConflict(ctx, db.conn, p.ID, p.Username); cErr != nil && KindOf(cErr) == ErrConflict {
			err = cErr
		}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// profileConflict returns ErrProfileExists when id already has a profile,
// ErrUsernameTaken when another profile holds username, and nil otherwise.
func profileConflict(ctx context.Context, q rowQuerier, id, username string) error {
	var existingID string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE id = ? OR username = ? ORDER BY (id = ?) DESC LIMIT 1`,
		id, username, id).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check profile uniqueness: %w", err)
	case existingID == id:
		return ErrProfileExists
	default:
		return ErrUsernameTaken
	}
}

// GetProfile returns the profile with the given identity key.
func (db *DB) GetProfile(ctx context.Context, id string) (profile *models.Profile, err error) {
	defer observe("get_profile", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// GetProfileByUsername resolves the share-page username to a profile.
func (db *DB) GetProfileByUsername(ctx context.Context, username string) (profile *models.Profile, err error) {
	defer observe("get_profile_by_username", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE username = ?`, NormalizeUsername(username))
	return scanProfile(row)
}

// UpdateProfile changes display fields. Nil fields keep their current value.
func (db *DB) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) (profile *models.Profile, err error) {
	defer observe("update_profile", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}

	err = db.withConflictRetry(ctx, "update_profile", func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, `UPDATE profiles SET
			full_name = COALESCE(?, full_name),
			avatar_url = COALESCE(?, avatar_url),
			bio = COALESCE(?, bio),
			website = COALESCE(?, website),
			updated_at = ?
		WHERE id = ?`,
			nullString(trim(req.FullName)), nullString(trim(req.AvatarURL)),
			nullString(trim(req.Bio)), nullString(trim(req.Website)),
			db.now(), id)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db.GetProfile(ctx, id)
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.Bio, &p.Website, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to scan profile: %w", err))
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
