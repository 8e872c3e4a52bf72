// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/whisperbox/internal/cache"
	"github.com/tomtom215/whisperbox/internal/eventprocessor"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
)

// Redelivered events are dropped if their id was seen within recentTTL,
// remembering at most recentWindow ids.
const (
	recentWindow = 4096
	recentTTL    = 10 * time.Minute
)

// Bridge forwards message-created events from the bus to the hub.
type Bridge struct {
	hub        *Hub
	subscriber *eventprocessor.Subscriber
	topic      string
	seen       *cache.LRUCache
}

// NewBridge creates a bridge consuming topic from subscriber.
func NewBridge(hub *Hub, subscriber *eventprocessor.Subscriber, topic string) *Bridge {
	return &Bridge{
		hub:        hub,
		subscriber: subscriber,
		topic:      topic,
		seen:       cache.NewLRUCache(recentWindow, recentTTL),
	}
}

// Serve consumes events until ctx is canceled. It matches suture.Service.
func (b *Bridge) Serve(ctx context.Context) error {
	logging.Info().Str("topic", b.topic).Msg("event bridge started")

	err := b.subscriber.NewEventHandler(b.topic).
		Handle(b.handle).
		Run(ctx)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		st := b.seen.Stats()
		logging.Info().
			Str("topic", b.topic).
			Int64("events", st.Misses).
			Int64("duplicates_dropped", st.Hits).
			Int("dedupe_entries", st.Size).
			Msg("event bridge stopped")
		return ctx.Err()
	}
	if err == nil && ctx.Err() == nil {
		// The subscription channel closed underneath us; let the supervisor restart.
		return errors.New("event subscription closed")
	}
	return err
}

func (b *Bridge) handle(_ context.Context, event *eventprocessor.MessageCreatedEvent) error {
	if b.seen.IsDuplicate(event.EventID) {
		metrics.RecordEventDropped("duplicate")
		return nil
	}
	msg := event.Message
	b.hub.PublishMessage(&msg)
	return nil
}

func (b *Bridge) String() string {
	return "event-bridge"
}
