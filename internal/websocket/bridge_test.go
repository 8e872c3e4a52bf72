// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/eventprocessor"
	"github.com/tomtom215/whisperbox/internal/models"
)

func TestBridge_ForwardsAndDeduplicates(t *testing.T) {
	t.Parallel()

	hub := setupHub(t, config.WebSocketConfig{SendBuffer: 8})
	client := registerClient(t, hub, "alice")

	ch := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })
	topic := eventprocessor.MessageCreatedTopic("")

	pub, err := eventprocessor.NewPublisher(ch, topic, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	msg := &models.Message{ID: "m1", RecipientID: "alice", Content: "hello", CreatedAt: baseTime}
	for i := 0; i < 2; i++ {
		if err := pub.PublishMessageCreated(context.Background(), msg); err != nil {
			t.Fatalf("PublishMessageCreated() error = %v", err)
		}
	}
	other := &models.Message{ID: "m2", RecipientID: "bob", Content: "hey", CreatedAt: baseTime}
	if err := pub.PublishMessageCreated(context.Background(), other); err != nil {
		t.Fatalf("PublishMessageCreated() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bridge := NewBridge(hub, eventprocessor.NewSubscriber(ch, nil), topic)
	serveErr := make(chan error, 1)
	go func() { serveErr <- bridge.Serve(ctx) }()

	frame := receive(t, client)
	got, ok := frame.Data.(*models.Message)
	if !ok || got.ID != "m1" || got.Content != "hello" {
		t.Fatalf("frame data = %#v", frame.Data)
	}

	select {
	case extra := <-client.send:
		t.Errorf("duplicate event reached the client: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
	// One duplicate of m1 dropped; m1 and m2 seen once each.
	waitFor(t, func() bool {
		st := bridge.seen.Stats()
		return st.Hits == 1 && st.Misses == 2
	})

	cancel()
	select {
	case err := <-serveErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop")
	}
	if bridge.String() != "event-bridge" {
		t.Errorf("String() = %q", bridge.String())
	}
}
