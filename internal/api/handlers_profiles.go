// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/models"
)

// CreateProfile registers the caller's profile. The profile id is the
// authenticated identity; only display fields come from the body.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.db.CreateProfile(r.Context(), userID, &req)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", userID).Str("username", profile.Username).Msg("Profile created")
	NewResponseWriter(w, r).Created(profile)
}

// GetMyProfile returns the caller's full profile.
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.db.GetProfile(r.Context(), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(profile)
}

// UpdateMyProfile changes display fields. The username cannot change.
func (h *Handler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.db.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(profile)
}

// GetPublicProfile returns the share-page view of a profile.
func (h *Handler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profileFromPath(w, r)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(profile.Public())
}

// SendMessage leaves an anonymous message for the profile's owner. Nothing
// about the sender is stored or logged.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profileFromPath(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.db.CreateMessage(r.Context(), profile.ID, req.Content)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	NewResponseWriter(w, r).Created(models.MessageReceipt{ID: msg.ID, CreatedAt: msg.CreatedAt})
}

// ListPublicPolls lists the profile's polls that currently accept votes.
func (h *Handler) ListPublicPolls(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profileFromPath(w, r)
	if !ok {
		return
	}

	polls, err := h.tally.ActivePolls(r.Context(), profile.ID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(polls)
}

// profileFromPath resolves {username}. Unknown usernames are 404.
func (h *Handler) profileFromPath(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	username := chi.URLParam(r, "username")
	if username == "" {
		NewResponseWriter(w, r).BadRequest("username is required")
		return nil, false
	}

	profile, err := h.db.GetProfileByUsername(r.Context(), username)
	if err != nil {
		respondStoreError(w, r, err)
		return nil, false
	}
	return profile, true
}
