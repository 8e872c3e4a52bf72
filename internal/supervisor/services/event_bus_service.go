// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/whisperbox/internal/logging"
)

// EventBusRunner matches the lifecycle of *eventprocessor.Bus.
type EventBusRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsRunning() bool
	Backend() string
}

// EventBusService owns the event bus lifecycle: it verifies the backend on
// start and closes publisher, subscriber and embedded NATS on shutdown.
//
// A failed Start is returned so suture retries it with backoff; the bus is
// only shut down when the tree itself stops.
type EventBusService struct {
	bus             EventBusRunner
	shutdownTimeout time.Duration
	name            string
}

// NewEventBusService wraps bus with a 10s shutdown timeout.
func NewEventBusService(bus EventBusRunner) *EventBusService {
	return NewEventBusServiceWithTimeout(bus, 10*time.Second)
}

// NewEventBusServiceWithTimeout wraps bus with a custom shutdown timeout.
func NewEventBusServiceWithTimeout(bus EventBusRunner, shutdownTimeout time.Duration) *EventBusService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EventBusService{
		bus:             bus,
		shutdownTimeout: shutdownTimeout,
		name:            "event-bus",
	}
}

// Serve implements suture.Service.
func (s *EventBusService) Serve(ctx context.Context) error {
	if err := s.bus.Start(ctx); err != nil {
		return fmt.Errorf("event bus start failed: %w", err)
	}
	logging.Info().Str("backend", s.bus.Backend()).Msg("event bus running")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.bus.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("event bus shutdown incomplete")
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *EventBusService) String() string {
	return s.name
}
