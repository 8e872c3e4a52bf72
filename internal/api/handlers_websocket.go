// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/whisperbox/internal/logging"
	ws "github.com/tomtom215/whisperbox/internal/websocket"
)

// WebSocket upgrades the connection and subscribes it to the caller's inbox.
// The client should list messages after the upgrade completes; frames for
// messages created in between are delivered on the socket and de-duplicated
// by id.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if h.wsHub == nil {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Realtime updates unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client, err := h.wsHub.Attach(r.Context(), conn, userID)
	if errors.Is(err, ws.ErrHubUnavailable) {
		logging.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("WebSocket hub unavailable")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket attach aborted")
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("user_id", userID).
		Uint64("client_id", client.ID()).
		Msg("WebSocket subscription opened")
}
