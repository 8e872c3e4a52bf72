// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package validation provides struct validation using go-playground/validator v10.
//
// Request structs in internal/models declare their shape rules with validate
// tags; the API layer calls ValidateStruct after decoding and converts the
// result with ToAPIError. Field names in messages use the JSON tag, so a
// client sees "option_id is required" rather than the Go field name.
//
// Shape rules live here. Domain rules that depend on stored state (unknown
// recipient, poll inactive, duplicate vote) are enforced by the store and
// surface as typed errors instead.
//
// # Custom Tags
//
//   - username: 3-30 characters of a-z, 0-9 or _ (case-insensitive)
//   - message_filter: one of all, unread, answered
//
// # Thread Safety
//
// GetValidator returns a process-wide singleton; validator.Validate caches
// struct metadata and is safe for concurrent use.
package validation
