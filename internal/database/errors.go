// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/whisperbox/internal/logging"
)

// ErrorKind classifies every error the store returns. Match a kind with
// errors.Is(err, ErrConflict), or a specific failure with errors.Is(err, ErrDuplicateVote).
type ErrorKind string

func (k ErrorKind) Error() string { return string(k) + " error" }

// Kind implements metrics.ErrorKinder.
func (k ErrorKind) Kind() string { return string(k) }

const (
	// ErrValidation: input rejected before any write.
	ErrValidation ErrorKind = "validation"
	// ErrReference: a referenced record does not exist or does not belong to its parent.
	ErrReference ErrorKind = "reference"
	// ErrConflict: a uniqueness rule rejected the write; existing state is unchanged.
	ErrConflict ErrorKind = "conflict"
	// ErrAuthorization: the requester may not touch the record. Returned whether or
	// not the record exists.
	ErrAuthorization ErrorKind = "authorization"
	// ErrTransient: storage unavailable or contended; safe to retry.
	ErrTransient ErrorKind = "transient"
)

// Validation errors.
var (
	ErrEmptyContent       = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrContentTooLong     = fmt.Errorf("%w: message content exceeds %d characters", ErrValidation, MaxContentLength)
	ErrEmptyQuestion      = fmt.Errorf("%w: poll question is empty", ErrValidation)
	ErrTooFewOptions      = fmt.Errorf("%w: a poll needs at least %d non-empty options", ErrValidation, MinPollOptions)
	ErrTooManyOptions     = fmt.Errorf("%w: too many poll options", ErrValidation)
	ErrExpiryInPast       = fmt.Errorf("%w: poll expiry must be in the future", ErrValidation)
	ErrRespondentRequired = fmt.Errorf("%w: a respondent id is required to vote", ErrValidation)
	ErrInvalidUsername    = fmt.Errorf("%w: username must be 3-30 characters of a-z, 0-9 or _", ErrValidation)
	ErrInvalidFilter      = fmt.Errorf("%w: unknown message filter", ErrValidation)
	ErrMissingIdentity    = fmt.Errorf("%w: profile id is required", ErrValidation)
)

// Reference errors.
var (
	ErrUnknownRecipient = fmt.Errorf("%w: recipient profile does not exist", ErrReference)
	ErrProfileNotFound  = fmt.Errorf("%w: profile not found", ErrReference)
	ErrPollNotFound     = fmt.Errorf("%w: poll not found", ErrReference)
	ErrOptionNotInPoll  = fmt.Errorf("%w: option does not belong to poll", ErrReference)
)

// Conflict errors.
var (
	ErrDuplicateVote = fmt.Errorf("%w: respondent has already voted on this poll", ErrConflict)
	ErrPollInactive  = fmt.Errorf("%w: poll is not accepting votes", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("%w: username is already taken", ErrConflict)
	ErrProfileExists = fmt.Errorf("%w: profile already exists", ErrConflict)

	// errUniqueAtCommit is a unique violation reported by COMMIT rather than by
	// the INSERT: a concurrent transaction committed the same key first.
	errUniqueAtCommit = fmt.Errorf("%w: unique key committed by a concurrent transaction", ErrConflict)
)

// Authorization errors. Not-found and not-owner collapse into one error so
// callers cannot test for record existence.
var (
	ErrMessageAccessDenied = fmt.Errorf("%w: message not found or not owned by requester", ErrAuthorization)
	ErrPollAccessDenied    = fmt.Errorf("%w: poll not found or not owned by requester", ErrAuthorization)
)

// KindOf returns the kind of err, or "" when err is nil or unclassified.
func KindOf(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// classify marks driver-level failures as transient and passes everything else through.
func classify(err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
		"IO Error",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isTransactionConflict reports a DuckDB optimistic concurrency failure.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple") ||
		strings.Contains(msg, "write-write conflict")
}

// isUniqueConstraintError reports a PRIMARY KEY or UNIQUE violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
