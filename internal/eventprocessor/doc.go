// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package eventprocessor carries "message created" events from the store to
// every instance's live-session hub, using Watermill over NATS or an
// in-process channel.
//
// # Flow
//
//	┌──────────────┐  commit  ┌────────────┐  publish  ┌──────────────────┐
//	│ CreateMessage├─────────►│  Publisher ├──────────►│ NATS / gochannel │
//	└──────────────┘          └────────────┘           └────────┬─────────┘
//	                                                            │ every instance
//	                                                            ▼
//	                                                   ┌──────────────────┐
//	                                                   │ websocket.Bridge │
//	                                                   └────────┬─────────┘
//	                                                            ▼
//	                                                   hub → recipient sessions
//
// The store publishes only after its transaction commits, so no event ever
// refers to a message that is not durable. Delivery is at-least-once and
// best-effort: there is no replay, and a session that missed events
// reconciles by re-listing its inbox. Consumers de-duplicate by event id,
// which equals the message id.
//
// # Backends
//
//   - memory: watermill gochannel. Single instance, no external process.
//   - nats: core NATS or JetStream, against an external server or one
//     embedded in the process (nats-server). Subscriptions are ephemeral
//     and not queue-grouped so every instance sees every event.
//
// Publishing goes through a gobreaker circuit breaker so a dead bus fails
// fast instead of adding latency to every message write.
package eventprocessor
