// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/whisperbox/internal/logging"
)

// Bus owns the publisher and subscriber of message-created events together
// with whatever infrastructure the configured backend needs: an in-process
// gochannel for "memory", or a NATS connection (optionally to an embedded
// server, optionally with a JetStream stream) for "nats".
type Bus struct {
	cfg        BusConfig
	publisher  *Publisher
	subscriber *Subscriber
	channel    *gochannel.GoChannel
	server     *EmbeddedServer
	conn       *natsgo.Conn
	streamInit *StreamInitializer
	logger     watermill.LoggerAdapter

	running  atomic.Bool
	closeMu  sync.Mutex
	isClosed bool
}

// NewBus builds the bus described by cfg. For the NATS backend the embedded
// server is started and the stream ensured before the publisher connects.
func NewBus(ctx context.Context, cfg BusConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}
	if cfg.Topic == "" {
		cfg.Topic = MessageCreatedTopic("")
	}

	b := &Bus{cfg: cfg, logger: logger}

	var err error
	switch cfg.Backend {
	case BackendMemory, "":
		b.cfg.Backend = BackendMemory
		err = b.initMemory()
	case BackendNATS:
		err = b.initNATS(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		b.closeAll(context.Background())
		return nil, err
	}

	b.publisher.SetCircuitBreaker(NewCircuitBreaker(cfg.Breaker))
	return b, nil
}

func (b *Bus) initMemory() error {
	b.channel = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, b.logger)

	pub, err := NewPublisher(b.channel, b.cfg.Topic, b.logger)
	if err != nil {
		return err
	}
	b.publisher = pub
	b.subscriber = NewSubscriber(b.channel, b.logger)
	return nil
}

func (b *Bus) initNATS(ctx context.Context) error {
	if b.cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(&b.cfg.Server)
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		b.server = srv
		b.cfg.withURL(srv.ClientURL())
		logging.Info().
			Str("url", srv.ClientURL()).
			Bool("jetstream", srv.JetStreamEnabled()).
			Msg("Embedded NATS server started")
	}
	if b.cfg.Publisher.URL == "" {
		return fmt.Errorf("%w: NATS URL required", ErrInvalidConfig)
	}

	nc, err := natsgo.Connect(b.cfg.Publisher.URL,
		natsgo.Name("whisperbox-bus"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(b.cfg.Publisher.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	b.conn = nc

	if b.cfg.Publisher.JetStream {
		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("create JetStream context: %w", err)
		}
		b.streamInit, err = NewStreamInitializer(js, &b.cfg.Stream)
		if err != nil {
			return err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := b.streamInit.EnsureStream(ensureCtx); err != nil {
			return err
		}
	}

	pub, err := NewNATSPublisher(b.cfg.Publisher, b.cfg.Topic, b.logger)
	if err != nil {
		return err
	}
	b.publisher = pub

	sub, err := NewNATSSubscriber(&b.cfg.Subscriber, b.logger)
	if err != nil {
		return err
	}
	b.subscriber = sub
	return nil
}

// Topic returns the message-created subject.
func (b *Bus) Topic() string { return b.cfg.Topic }

// Backend returns "memory" or "nats".
func (b *Bus) Backend() string { return b.cfg.Backend }

// Publisher returns the event publisher.
func (b *Bus) Publisher() *Publisher { return b.publisher }

// Subscriber returns the event subscriber.
func (b *Bus) Subscriber() *Subscriber { return b.subscriber }

// ClientURL returns the NATS URL in use, empty for the memory backend.
func (b *Bus) ClientURL() string { return b.cfg.Publisher.URL }

// Start verifies the backend is usable and marks the bus running.
func (b *Bus) Start(ctx context.Context) error {
	if b.streamInit != nil && !b.streamInit.IsHealthy(ctx) {
		return fmt.Errorf("stream %s is not available", b.cfg.Stream.Name)
	}
	b.running.Store(true)
	return nil
}

// IsRunning reports whether Start succeeded and Shutdown has not been called.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Healthy reports whether the backend can currently carry events.
func (b *Bus) Healthy() bool {
	if !b.IsRunning() {
		return false
	}
	if b.conn != nil && !b.conn.IsConnected() {
		return false
	}
	if b.server != nil && !b.server.IsRunning() {
		return false
	}
	return true
}

// Shutdown closes the publisher, the subscriber and the backend.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.running.Store(false)
	return b.closeAll(ctx)
}

func (b *Bus) closeAll(ctx context.Context) error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.isClosed {
		return nil
	}
	b.isClosed = true

	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	// The gochannel is both publisher and subscriber and is already closed.
	if b.subscriber != nil && b.channel == nil {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown embedded NATS: %w", err))
		}
	}
	return errors.Join(errs...)
}
