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
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
	"github.com/tomtom215/whisperbox/internal/models"
)

// MaxContentLength is the maximum message length in characters after trimming.
const MaxContentLength = 2000

const messageColumns = `id, recipient_id, content, is_read, is_answered, created_at`

// CreateMessage stores an anonymous message for recipientID and then publishes
// a message-created event. A publish failure is logged and counted; it never
// undoes the stored message.
func (db *DB) CreateMessage(ctx context.Context, recipientID, content string) (msg *models.Message, err error) {
	defer observe("create_message", time.Now(), &err)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	qctx, cancel := db.ensureContext(ctx)
	defer cancel()

	m := &models.Message{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Content:     content,
	}

	err = db.withConflictRetry(qctx, "create_message", func(ctx context.Context) error {
		return db.inTx(ctx, func(tx *sql.Tx) error {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = ?)`, recipientID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check recipient: %w", err)
			}
			if !exists {
				return ErrUnknownRecipient
			}

			m.CreatedAt = db.stamp()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, false, false, ?)`,
				m.ID, m.RecipientID, m.Content, m.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert message: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMessageCreated()
	logging.Ctx(ctx).Debug().Str("message_id", m.ID).Str("recipient_id", m.RecipientID).Msg("Message stored")

	// Publish-after-commit. The caller disconnecting must not suppress notification.
	db.publishMessageCreated(context.WithoutCancel(ctx), m)
	return m, nil
}

// GetMessage returns a message owned by requesterID.
func (db *DB) GetMessage(ctx context.Context, id, requesterID string) (msg *models.Message, err error) {
	defer observe("get_message", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var m models.Message
	err = db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ? AND recipient_id = ?`, id, requesterID).
		Scan(&m.ID, &m.RecipientID, &m.Content, &m.IsRead, &m.IsAnswered, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageAccessDenied
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get message: %w", err))
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// ListMessages returns the recipient's messages matching filter, newest first.
func (db *DB) ListMessages(ctx context.Context, recipientID string, filter models.MessageFilter) (msgs []models.Message, err error) {
	defer observe("list_messages", time.Now(), &err)

	if filter == "" {
		filter = models.MessageFilterAll
	}
	if !filter.Valid() {
		return nil, ErrInvalidFilter
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + messageColumns + ` FROM messages WHERE recipient_id = ?`
	switch filter {
	case models.MessageFilterUnread:
		query += ` AND is_read = false`
	case models.MessageFilterAnswered:
		query += ` AND is_answered = true`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list messages: %w", err))
	}
	defer closeWithLog(rows, "message rows")

	msgs = make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RecipientID, &m.Content, &m.IsRead, &m.IsAnswered, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("error iterating messages: %w", err))
	}
	return msgs, nil
}

// MarkRead flips is_read on the given messages. Ids the recipient does not own
// and messages already read are skipped. Returns the number changed.
func (db *DB) MarkRead(ctx context.Context, recipientID string, ids []string) (updated int, err error) {
	defer observe("mark_read", time.Now(), &err)

	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	args := make([]any, 0, len(ids)+1)
	args = append(args, recipientID)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE messages SET is_read = true
		WHERE recipient_id = ? AND is_read = false AND id IN (` + placeholders(len(ids)) + `)`

	err = db.withConflictRetry(ctx, "mark_read", func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		updated = int(n)
		return nil
	})
	return updated, err
}

// MarkAnswered flags a message as answered. Owner only.
func (db *DB) MarkAnswered(ctx context.Context, id, requesterID string) (err error) {
	defer observe("mark_answered", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, "mark_answered", func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx,
			`UPDATE messages SET is_answered = true WHERE id = ? AND recipient_id = ?`, id, requesterID)
		if err != nil {
			return fmt.Errorf("failed to mark message answered: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrMessageAccessDenied
		}
		return nil
	})
}

// DeleteMessage removes a message. Only its recipient may delete it; any other
// requester gets ErrMessageAccessDenied whether or not the message exists.
func (db *DB) DeleteMessage(ctx context.Context, id, requesterID string) (err error) {
	defer observe("delete_message", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, "delete_message", func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx,
			`DELETE FROM messages WHERE id = ? AND recipient_id = ?`, id, requesterID)
		if err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrMessageAccessDenied
		}
		return nil
	})
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
