// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/models"
)

// messageListQuery holds the query parameters of ListMessages.
type messageListQuery struct {
	Filter string `json:"filter" validate:"message_filter"`
}

// ListMessages returns the caller's inbox, newest first.
//
// Query parameters:
//   - filter: all (default), unread or answered
//   - mark_read: when true, the listed unread messages are marked read after
//     listing
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := messageListQuery{Filter: r.URL.Query().Get("filter")}
	if !validateRequest(w, r, &q) {
		return
	}

	markRead := false
	if raw := r.URL.Query().Get("mark_read"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			NewResponseWriter(w, r).BadRequest("mark_read must be true or false")
			return
		}
		markRead = v
	}

	msgs, err := h.db.ListMessages(r.Context(), userID, models.MessageFilter(q.Filter))
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	result := models.MessageList{Messages: msgs, Count: len(msgs)}

	if markRead {
		var unread []string
		for i := range msgs {
			if !msgs[i].IsRead {
				unread = append(unread, msgs[i].ID)
			}
		}
		if len(unread) > 0 {
			n, err := h.db.MarkRead(r.Context(), userID, unread)
			if err != nil {
				// The list itself succeeded; the next listing will retry.
				logging.Ctx(r.Context()).Warn().Err(err).Int("ids", len(unread)).Msg("Failed to mark listed messages read")
			}
			result.MarkedRead = n
		}
	}

	NewResponseWriter(w, r).Success(result)
}

// MarkRead marks the given messages read. Ids the caller does not own are
// ignored.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.MarkReadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	n, err := h.db.MarkRead(r.Context(), userID, req.IDs)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(models.MarkReadResponse{Updated: n})
}

// MarkAnswered flags a message as answered.
func (h *Handler) MarkAnswered(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.db.MarkAnswered(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// GetMessage returns one of the caller's messages. Someone else's message and
// a missing one both answer 404.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	msg, err := h.db.GetMessage(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(msg)
}

// DeleteMessage removes one of the caller's messages.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteMessage(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
