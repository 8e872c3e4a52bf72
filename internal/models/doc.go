// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package models defines the data structures shared by the store, the API and
the live inbox.

Stored records:

  - Profile: a recipient. ID is the identity provider's user id; Username is
    the share-page handle and never changes.
  - Message: an anonymous message. It has a recipient and nothing else that
    identifies a sender.
  - Poll, PollOption, PollResponse: an owner's question, its ordered options
    and one row per vote.

Derived views, recomputed on every read and never stored:

  - PollTally and PollWithTally: per-option counts and rounded percentages.
  - InboxSummary: weekly message analytics for one recipient.
  - HealthStatus: process health for liveness and readiness checks.

Request types carry go-playground/validator tags; the validation package
registers the custom "username" and "message_filter" tags they use.
*/
package models
