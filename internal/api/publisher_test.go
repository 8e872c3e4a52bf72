// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"context"

	"github.com/tomtom215/whisperbox/internal/models"
	ws "github.com/tomtom215/whisperbox/internal/websocket"
)

// hubPublisher delivers store events directly to the hub, skipping the bus.
type hubPublisher struct {
	hub *ws.Hub
}

func (p hubPublisher) PublishMessageCreated(_ context.Context, msg *models.Message) error {
	p.hub.PublishMessage(msg)
	return nil
}
