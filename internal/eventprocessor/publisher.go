// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/whisperbox/internal/models"
)

// Publisher wraps a Watermill publisher with circuit breaker protection.
// It satisfies database.MessagePublisher.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	topic          string
	serializer     *Serializer
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher wraps an existing Watermill publisher, such as a gochannel.
func NewPublisher(pub message.Publisher, topic string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{
		publisher:  pub,
		topic:      topic,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

// NewNATSPublisher creates a Watermill NATS publisher. With JetStream enabled
// the stream must already exist and Nats-Msg-Id is tracked for deduplication.
func NewNATSPublisher(cfg PublisherConfig, topic string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("whisperbox-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	jsCfg := wmNats.JetStreamConfig{Disabled: true}
	if cfg.JetStream {
		jsCfg = wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.AckWait(cfg.PublishTimeout),
				natsgo.RetryAttempts(2),
				natsgo.RetryWait(50 * time.Millisecond),
			},
		}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   jsCfg,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisher(pub, topic, logger)
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Topic returns the subject message-created events are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish sends a message to the specified topic with circuit breaker protection.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	// Set Nats-Msg-Id for deduplication if not already set
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	if p.circuitBreaker != nil {
		_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
		return err
	}
	return p.publisher.Publish(topic, msg)
}

// PublishMessageCreated announces a committed message. The Watermill message
// UUID and Nats-Msg-Id are the message id, so a retried publish is
// de-duplicated by JetStream and by every session.
func (p *Publisher) PublishMessageCreated(ctx context.Context, m *models.Message) error {
	event := NewMessageCreatedEvent(m)
	data, err := p.serializer.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("recipient_id", event.RecipientID)
	msg.Metadata.Set("schema_version", fmt.Sprintf("%d", event.SchemaVersion))

	if err := p.Publish(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish message %s: %w", event.EventID, err)
	}
	return nil
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
