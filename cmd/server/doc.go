// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package main is the entry point for the Whisperbox server.

Whisperbox gives every user a public share page where anyone can leave an
anonymous message or answer a poll. Owners read their inbox, see live
deliveries over a WebSocket, and get weekly analytics of what they received.

# Application Architecture

Long-lived components run under a suture v4 supervisor tree:

	RootSupervisor ("whisperbox")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── event-bus      (watermill; gochannel or NATS JetStream)
	│   ├── websocket-hub  (live inbox sessions)
	│   └── event-bridge   (message.created events into the hub)
	└── APISupervisor ("api-layer")
	    └── http-server    (chi router)

Initialization order:

 1. Configuration: koanf v2 (defaults, optional config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB store for profiles, messages and polls
 4. Event bus: watermill publisher and subscriber, embedded NATS if enabled
 5. WebSocket hub and event bridge
 6. Authentication: JWT verification or a trusted identity header
 7. HTTP server and supervisor tree

# Configuration

Priority: environment variables > config file > defaults.

	# Server
	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Identity (choose one mode)
	AUTH_MODE=jwt                # jwt, header, or none
	JWT_SECRET=<32+ chars>       # required for jwt
	IDENTITY_HEADER=X-User-ID    # required for header

	# Storage
	DUCKDB_PATH=/data/whisperbox.duckdb

	# Events
	EVENTS_BACKEND=memory        # memory or nats
	NATS_URL=nats://nats:4222
	NATS_EMBEDDED=false
	NATS_JETSTREAM=true

	# Polls and analytics
	POLL_RESPONDENT_POLICY=allow_anonymous
	ANALYTICS_TIMEZONE=UTC

# Signal Handling

On SIGINT or SIGTERM the tree is canceled. The HTTP server drains in-flight
requests for up to 10s, live sessions are closed, the event bus is shut down,
and the database is closed last.

# Usage Examples

Development:

	AUTH_MODE=none DUCKDB_PATH=:memory: go run ./cmd/server

Behind a gateway that authenticates users:

	AUTH_MODE=header IDENTITY_HEADER=X-Authenticated-User ./whisperbox

With an external NATS cluster:

	EVENTS_BACKEND=nats NATS_URL=nats://nats:4222 NATS_JETSTREAM=true ./whisperbox
*/
package main
