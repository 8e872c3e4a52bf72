// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/whisperbox/internal/analytics"
	"github.com/tomtom215/whisperbox/internal/auth"
	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/database"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/tally"
	ws "github.com/tomtom215/whisperbox/internal/websocket"
)

// Version is reported by the health endpoint. Overridden at build time.
var Version = "dev"

// BusStatus reports event bus health.
type BusStatus interface {
	Backend() string
	Healthy() bool
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_profiles.go: profiles and the public share page
//   - handlers_messages.go: owner inbox
//   - handlers_polls.go: polls, votes and tallies
//   - handlers_analytics.go: inbox summary
//   - handlers_websocket.go: live subscription
//   - handlers_health.go: health
type Handler struct {
	db        *database.DB
	tally     *tally.Service
	analytics *analytics.Service
	wsHub     *ws.Hub
	bus       BusStatus
	config    *config.Config
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a new API handler. bus may be nil when no event bus is
// configured.
func NewHandler(db *database.DB, cfg *config.Config, wsHub *ws.Hub, bus BusStatus) *Handler {
	return &Handler{
		db:        db,
		tally:     tally.NewService(db),
		analytics: analytics.NewService(db, cfg.Analytics),
		wsHub:     wsHub,
		bus:       bus,
		config:    cfg,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// requireUserID returns the authenticated profile id. RequireAuth guarantees
// one is present; the check guards against a route wired without it.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := auth.UserID(r.Context())
	if id == "" {
		WriteError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return "", false
	}
	return id, true
}

// getUpgrader creates a websocket upgrader with origin checking.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates websocket connection origins. Requests
// without an Origin header come from non-browser clients, which cannot be
// driven cross-site, and are accepted.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}

	allowed := h.config.WebSocket.AllowedOrigins
	if len(allowed) == 0 {
		allowed = h.config.Security.CORSOrigins
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and bounds length.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		out = append(out, r)
		if len(out) == maxLen {
			break
		}
	}
	return string(out)
}
