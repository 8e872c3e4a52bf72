// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package api provides the HTTP interface for Whisperbox.

Routing uses chi. Every response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "CONFLICT", "message": "...", "request_id": "..."}}

# Route Groups

	/api/v1/health                  public, permissive rate limit
	/api/v1/profiles/{username}...  public share page: profile, send message, active polls
	/api/v1/polls/{id}[/tally]      public poll view
	/api/v1/polls/{id}/votes        optional identity, write rate limit
	/api/v1/messages...             owner only
	/api/v1/polls (owner actions)   owner only
	/api/v1/analytics/summary       owner only
	/api/v1/ws                      owner only, websocket upgrade
	/metrics                        Prometheus

# Error Mapping

Store errors carry one of five kinds and map onto status codes:

	validation     400 VALIDATION_FAILED
	reference      404 NOT_FOUND (unknown option on a known poll: 400 BAD_REQUEST)
	conflict       409 CONFLICT
	authorization  404 NOT_FOUND, identical whether or not the record exists
	transient      503 SERVICE_UNAVAILABLE with Retry-After

# Anonymity

Message content is never logged. The sender of a message is not recorded
anywhere, and the receipt returned to the sender carries only the message id
and timestamp.
*/
package api
