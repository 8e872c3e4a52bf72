// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package auth resolves the caller's profile id for authenticated routes.

Account creation and login belong to an external identity provider. This
package only verifies what that provider hands over:

  - jwt: an HS256 bearer token (Authorization header or "token" cookie)
    whose "sub" claim is the profile id, verified with golang-jwt
  - header: a gateway that already authenticated the caller forwards the
    profile id in a trusted header (IDENTITY_HEADER)
  - none: development only; the identity header is honored when present
    and never required

Anonymous senders and voters never authenticate. Routes that accept an
optional identity (casting a vote) use OptionalAuth so a logged-in voter's
id becomes the respondent id.
*/
package auth
