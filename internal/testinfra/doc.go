// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package testinfra provides container-backed infrastructure for integration
// tests, built on testcontainers-go.
//
// # NATS Container
//
// NATSContainer runs a real nats-server (JetStream on by default) so the event
// bus can be exercised against the same server it talks to in production:
//
//	func TestBusAgainstNATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    nats, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.CleanupContainer(t, nats.Container)
//
//	    bus, err := eventprocessor.NewBus(ctx, eventprocessor.BusConfigFromEvents(&config.EventsConfig{
//	        Backend: "nats", URL: nats.URL, JetStream: true,
//	    }), nil)
//	    // ...
//	}
//
// Everything except this file is behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests are skipped when Docker is unavailable or -short is set.
package testinfra
