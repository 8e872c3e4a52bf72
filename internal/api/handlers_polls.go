// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/whisperbox/internal/auth"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/models"
)

// ListPolls returns every poll the caller owns with current results.
func (h *Handler) ListPolls(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	polls, err := h.tally.OwnerPolls(r.Context(), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(polls)
}

// CreatePoll creates a poll with its options in one transaction.
func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreatePollRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	poll, err := h.db.CreatePoll(r.Context(), userID, &req)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", userID).
		Str("poll_id", poll.ID).
		Int("options", len(poll.Options)).
		Msg("Poll created")
	NewResponseWriter(w, r).Created(poll)
}

// GetPoll returns a poll and its current results.
func (h *Handler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.tally.Poll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(poll)
}

// GetPollTally returns only the current results of a poll.
func (h *Handler) GetPollTally(w http.ResponseWriter, r *http.Request) {
	t, err := h.tally.Tally(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(t)
}

// CastVote records a vote. The respondent is the authenticated caller when
// there is one, otherwise the body's respondent_id, otherwise none. What
// happens to a vote without a respondent depends on the configured policy.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.CastVoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	respondent := req.RespondentID
	if id := auth.UserID(r.Context()); id != "" {
		respondent = &id
	}

	pollID := chi.URLParam(r, "id")
	resp, err := h.db.CastVote(r.Context(), pollID, req.OptionID, respondent)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	result := models.VoteResult{Response: *resp}
	if t, err := h.tally.Tally(r.Context(), pollID); err == nil {
		result.Tally = *t
	} else {
		// The vote is committed; a client can fetch the tally separately.
		logging.Ctx(r.Context()).Warn().Err(err).Str("poll_id", pollID).Msg("Failed to tally after vote")
	}

	NewResponseWriter(w, r).Created(result)
}

// TogglePoll flips whether the poll accepts votes.
func (h *Handler) TogglePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	poll, err := h.db.ToggleActive(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(poll)
}

// DeletePoll removes a poll with its options and responses.
func (h *Handler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeletePoll(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
