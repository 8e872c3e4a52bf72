// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package eventprocessor

import (
	"time"

	"github.com/tomtom215/whisperbox/internal/config"
)

// Backend names accepted in EventsConfig.Backend.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	JetStream         bool
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 1 << 30,   // 1GB
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	JetStream        bool
	PublishTimeout   time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		PublishTimeout:   2 * time.Second,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  1024 * 1024, // 1MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
//
// Live-session fan-out needs every instance to receive every event, so
// subscriptions are never queue-grouped and never durable.
type SubscriberConfig struct {
	URL              string
	JetStream        bool
	StreamName       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		SubscribersCount: 1, // preserves per-recipient order
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the stream configuration for subjectPrefix.
// Retention is short: the bus is a notification channel, not a log.
func DefaultStreamConfig(subjectPrefix string) StreamConfig {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return StreamConfig{
		Name:            "INBOX",
		Subjects:        []string{subjectPrefix + ".>"},
		MaxAge:          time.Hour,
		MaxBytes:        64 * 1024 * 1024, // 64MB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// BusConfig is the complete bus setup derived from application configuration.
type BusConfig struct {
	Backend        string
	Topic          string
	EmbeddedServer bool
	Server         ServerConfig
	Publisher      PublisherConfig
	Subscriber     SubscriberConfig
	Stream         StreamConfig
	Breaker        CircuitBreakerConfig
}

// BusConfigFromEvents maps the events section of the application config onto
// publisher, subscriber, stream and breaker settings.
func BusConfigFromEvents(e *config.EventsConfig) BusConfig {
	bc := BusConfig{
		Backend:        e.Backend,
		Topic:          MessageCreatedTopic(e.SubjectPrefix),
		EmbeddedServer: e.EmbeddedServer,
		Server:         DefaultServerConfig(),
		Publisher:      DefaultPublisherConfig(e.URL),
		Subscriber:     DefaultSubscriberConfig(e.URL),
		Stream:         DefaultStreamConfig(e.SubjectPrefix),
		Breaker:        DefaultCircuitBreakerConfig("event-publisher"),
	}
	if bc.Backend == "" {
		bc.Backend = BackendMemory
	}

	bc.Server.JetStream = e.JetStream
	if e.ServerPort != 0 {
		bc.Server.Port = e.ServerPort
	}
	if e.StoreDir != "" {
		bc.Server.StoreDir = e.StoreDir
	}

	bc.Publisher.JetStream = e.JetStream
	bc.Subscriber.JetStream = e.JetStream
	if e.PublishTimeout > 0 {
		bc.Publisher.PublishTimeout = e.PublishTimeout
	}
	if e.MaxReconnects != 0 {
		bc.Publisher.MaxReconnects = e.MaxReconnects
		bc.Subscriber.MaxReconnects = e.MaxReconnects
	}
	if e.ReconnectWait > 0 {
		bc.Publisher.ReconnectWait = e.ReconnectWait
		bc.Subscriber.ReconnectWait = e.ReconnectWait
	}

	if e.StreamName != "" {
		bc.Stream.Name = e.StreamName
	}
	if e.MaxAge > 0 {
		bc.Stream.MaxAge = e.MaxAge
	}
	if e.JetStream {
		bc.Subscriber.StreamName = bc.Stream.Name
	}

	if e.BreakerMaxFailures > 0 {
		bc.Breaker.FailureThreshold = e.BreakerMaxFailures
	}
	if e.BreakerTimeout > 0 {
		bc.Breaker.Timeout = e.BreakerTimeout
	}
	return bc
}

// withURL points publisher and subscriber at url.
func (c *BusConfig) withURL(url string) {
	c.Publisher.URL = url
	c.Subscriber.URL = url
}
