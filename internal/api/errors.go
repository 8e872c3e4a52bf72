// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/whisperbox/internal/database"
	"github.com/tomtom215/whisperbox/internal/logging"
)

// retryAfterSeconds is sent with 503 responses for transient store failures.
const retryAfterSeconds = "1"

// publicErrors are store errors whose text is safe to show clients.
var publicErrors = []error{
	database.ErrEmptyContent,
	database.ErrContentTooLong,
	database.ErrEmptyQuestion,
	database.ErrTooFewOptions,
	database.ErrTooManyOptions,
	database.ErrExpiryInPast,
	database.ErrRespondentRequired,
	database.ErrInvalidUsername,
	database.ErrInvalidFilter,
	database.ErrMissingIdentity,
	database.ErrUnknownRecipient,
	database.ErrProfileNotFound,
	database.ErrPollNotFound,
	database.ErrOptionNotInPoll,
	database.ErrDuplicateVote,
	database.ErrPollInactive,
	database.ErrUsernameTaken,
	database.ErrProfileExists,
}

// publicMessage returns the client-facing text for err without the kind prefix
// or any wrapping context.
func publicMessage(err error, fallback string) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			msg := known.Error()
			if i := strings.Index(msg, ": "); i >= 0 {
				return msg[i+2:]
			}
			return msg
		}
	}
	return fallback
}

// respondStoreError maps a store error onto the API envelope.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	switch {
	case errors.Is(err, database.ErrOptionNotInPoll):
		rw.BadRequest(publicMessage(err, "Invalid option"))
	case errors.Is(err, database.ErrValidation):
		rw.ValidationError(publicMessage(err, "Validation failed"), nil)
	case errors.Is(err, database.ErrReference):
		rw.NotFound(publicMessage(err, "Not found"))
	case errors.Is(err, database.ErrConflict):
		rw.Error(http.StatusConflict, ErrCodeConflict, publicMessage(err, "Conflict"))
	case errors.Is(err, database.ErrAuthorization):
		// Same body as a missing record.
		rw.NotFound("Not found")
	case errors.Is(err, database.ErrTransient):
		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Transient store failure")
		w.Header().Set("Retry-After", retryAfterSeconds)
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable, retry shortly")
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("Request canceled by client")
	case errors.Is(err, context.DeadlineExceeded):
		w.Header().Set("Retry-After", retryAfterSeconds)
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Request timed out")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled store error")
		rw.InternalError("An internal error occurred")
	}
}
