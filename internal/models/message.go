// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

import "time"

// Message is an anonymous note left for a recipient. No sender identity is stored.
type Message struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	IsAnswered  bool      `json:"is_answered"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageFilter selects a subset of a recipient's inbox.
type MessageFilter string

const (
	MessageFilterAll      MessageFilter = "all"
	MessageFilterUnread   MessageFilter = "unread"
	MessageFilterAnswered MessageFilter = "answered"
)

// Valid reports whether f is a known filter.
func (f MessageFilter) Valid() bool {
	switch f {
	case MessageFilterAll, MessageFilterUnread, MessageFilterAnswered:
		return true
	}
	return false
}

// SendMessageRequest is the anonymous sender's payload.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// MarkReadRequest flips is_read on the listed messages.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

// MarkReadResponse reports how many messages changed.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// MessageReceipt is returned to an anonymous sender. It carries nothing about
// the recipient beyond what the sender already knew.
type MessageReceipt struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageList is the owner's inbox view. With mark_read=true, MarkedRead counts
// the listed messages that were unread and have now been marked read; the
// listed messages keep the state they had when read, so the dashboard can
// still highlight them as new.
type MessageList struct {
	Messages   []Message `json:"messages"`
	Count      int       `json:"count"`
	MarkedRead int       `json:"marked_read"`
}
