// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package cache provides the bounded, expiring id set used to drop repeated
// message-created events.
//
// Events reach the hub at least once: JetStream redelivers unacknowledged
// messages and a publisher retry after a timeout can land twice. The event id
// is the message id, so remembering recent ids is enough to deliver each
// message to live sessions once.
//
//	seen := cache.NewLRUCache(4096, 10*time.Minute)
//	if seen.IsDuplicate(event.EventID) {
//	    return nil
//	}
package cache
