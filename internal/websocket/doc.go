// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package websocket delivers newly created messages to a recipient's live sessions.

Key Components:

  - Hub: owns the registry of connected clients, keyed by recipient id
  - Client: one server-side websocket connection with read/write pumps
  - Bridge: consumes message-created events from the bus and hands them to the Hub
  - Session: the live-session side, dialing /ws, re-listing on every (re)connect
    and merging both sources into an Inbox
  - Inbox: a de-duplicated, newest-first cache of a recipient's messages

Architecture:

	 DuckDB commit
	      │ publish
	      ▼
	 event bus (gochannel | NATS)
	      │ every instance
	      ▼
	 ┌────────┐   recipient id   ┌─────────┐
	 │ Bridge │ ───────────────► │   Hub   │
	 └────────┘                  └────┬────┘
	                                  │ only that recipient's clients
	                      ┌───────────┼───────────┐
	                   Client      Client      Client

Delivery is at-least-once and best-effort. Nothing is buffered for a session
while it reconnects, so a Session always re-lists after connecting and the
Inbox drops duplicates by message id.

Subscription state:

	Connecting → Active → (Error → Reconnecting → Active)* → Closed

A server-side Client that cannot keep up (its send buffer is full) moves to
Error and is dropped. The Session on the other end sees the close, moves to
Error, then Reconnecting, and becomes Active again after its re-list.

Frames:

  - server → client: {"type":"message_created","data":<Message>}, {"type":"pong"}
  - client → server: {"type":"ping"}

Inbound client frames are rate limited per connection with golang.org/x/time/rate.
*/
package websocket
