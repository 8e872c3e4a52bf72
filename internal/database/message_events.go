// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package database

import (
	"context"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
	"github.com/tomtom215/whisperbox/internal/models"
)

// MessagePublisher receives every message after its insert has committed.
type MessagePublisher interface {
	PublishMessageCreated(ctx context.Context, msg *models.Message) error
}

// SetMessagePublisher installs the post-commit hook. Passing nil disables it.
// Call once during startup.
func (db *DB) SetMessagePublisher(p MessagePublisher) {
	db.publisherMu.Lock()
	defer db.publisherMu.Unlock()
	db.publisher = p
}

// PublishFailures returns how many post-commit publishes have failed.
func (db *DB) PublishFailures() int64 {
	return db.publishFailures.Load()
}

func (db *DB) publishMessageCreated(ctx context.Context, msg *models.Message) {
	db.publisherMu.RLock()
	p := db.publisher
	db.publisherMu.RUnlock()
	if p == nil {
		return
	}

	err := p.PublishMessageCreated(ctx, msg)
	metrics.RecordEventPublish(err)
	if err != nil {
		db.publishFailures.Add(1)
		// The message is durable; live sessions reconcile by re-listing.
		logging.Ctx(ctx).Warn().Err(err).
			Str("message_id", msg.ID).
			Str("recipient_id", msg.RecipientID).
			Msg("Failed to publish message-created event")
	}
}
