// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

import "time"

// Poll is an owner-run question with a closed, ordered set of options.
type Poll struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Question  string       `json:"question"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Options   []PollOption `json:"options"`
}

// Expired reports whether the poll has an expiry at or before now.
func (p *Poll) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// AcceptsVotes reports whether a vote cast at now may be recorded.
func (p *Poll) AcceptsVotes(now time.Time) bool {
	return p.IsActive && !p.Expired(now)
}

// PollOption is immutable once its poll is created. Position is the creation order.
type PollOption struct {
	ID         string `json:"id"`
	PollID     string `json:"poll_id"`
	OptionText string `json:"option_text"`
	Position   int    `json:"position"`
}

// PollResponse is one recorded vote. RespondentID is nil for a fully anonymous vote.
type PollResponse struct {
	ID           string    `json:"id"`
	PollID       string    `json:"poll_id"`
	OptionID     string    `json:"option_id"`
	RespondentID *string   `json:"respondent_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OptionTally is the computed result for one option.
type OptionTally struct {
	OptionID   string `json:"option_id"`
	OptionText string `json:"option_text"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// PollTally lists option results in creation order.
type PollTally struct {
	PollID         string        `json:"poll_id"`
	TotalResponses int           `json:"total_responses"`
	Options        []OptionTally `json:"options"`
}

// PollWithTally is a poll and its current results.
type PollWithTally struct {
	Poll
	Tally PollTally `json:"tally"`
}

// CreatePollRequest creates a poll with its options in one step.
type CreatePollRequest struct {
	Question  string     `json:"question" validate:"required,max=500"`
	Options   []string   `json:"options" validate:"required,min=2,dive,max=200"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CastVoteRequest records a vote. RespondentID is used only when the caller
// is not signed in and supplies its own correlation token.
type CastVoteRequest struct {
	OptionID     string  `json:"option_id" validate:"required,uuid"`
	RespondentID *string `json:"respondent_id,omitempty" validate:"omitempty,min=1,max=128"`
}

// VoteResult is returned after a vote is recorded.
type VoteResult struct {
	Response PollResponse `json:"response"`
	Tally    PollTally    `json:"tally"`
}
