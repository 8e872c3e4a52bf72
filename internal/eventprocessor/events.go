// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package eventprocessor

import (
	"strings"
	"time"

	"github.com/tomtom215/whisperbox/internal/models"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to MessageCreatedEvent.
const SchemaVersion = 1

// DefaultSubjectPrefix is used when no subject prefix is configured.
const DefaultSubjectPrefix = "inbox.messages"

// EventTypeMessageCreated is the subject suffix for new messages.
const EventTypeMessageCreated = "created"

// MessageCreatedEvent announces a committed message to live sessions.
// EventID is the message id and doubles as the de-duplication key.
type MessageCreatedEvent struct {
	SchemaVersion int            `json:"schema_version,omitempty"`
	EventID       string         `json:"event_id"`
	RecipientID   string         `json:"recipient_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Message       models.Message `json:"message"`
}

// NewMessageCreatedEvent wraps a stored message.
func NewMessageCreatedEvent(msg *models.Message) *MessageCreatedEvent {
	return &MessageCreatedEvent{
		SchemaVersion: SchemaVersion,
		EventID:       msg.ID,
		RecipientID:   msg.RecipientID,
		OccurredAt:    msg.CreatedAt,
		Message:       *msg,
	}
}

// GetSchemaVersion returns the schema version, defaulting to 1 for events without one.
func (e *MessageCreatedEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// Validate checks required fields and returns an error if validation fails.
func (e *MessageCreatedEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.RecipientID == "" {
		return &ValidationError{Field: "recipient_id", Message: "required"}
	}
	if e.Message.ID != e.EventID {
		return &ValidationError{Field: "message.id", Message: "must equal event_id"}
	}
	if e.Message.RecipientID != e.RecipientID {
		return &ValidationError{Field: "message.recipient_id", Message: "must equal recipient_id"}
	}
	return nil
}

// MessageCreatedTopic returns the subject for message-created events.
// Format: <prefix>.created
// Example: inbox.messages.created
func MessageCreatedTopic(prefix string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + EventTypeMessageCreated
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
