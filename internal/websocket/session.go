// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/models"
)

// ListFunc fetches the recipient's current messages from the store.
type ListFunc func(ctx context.Context) ([]models.Message, error)

// SessionConfig configures a live session.
type SessionConfig struct {
	// URL is the ws:// or wss:// address of /api/v1/ws.
	URL    string
	Header http.Header
	Dialer *websocket.Dialer

	// List is called after every successful dial, before the session is
	// Active. It must return the recipient's whole inbox: cached messages it
	// omits are treated as deleted.
	List ListFunc

	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	PingInterval time.Duration // 0 disables application pings
	EventBuffer  int

	OnStateChange func(from, to SubscriptionState)
}

// ErrSessionStarted is returned when Run is called a second time.
var ErrSessionStarted = errors.New("session already started")

// Session is one live subscription to a recipient's inbox. It reconnects
// with exponential backoff, re-lists on every connect and reconciles pushed
// and listed messages in an Inbox.
type Session struct {
	cfg     SessionConfig
	inbox   *Inbox
	events  chan models.Message
	state   stateMachine
	started atomic.Bool
}

// NewSession validates cfg and returns a Session in the Connecting state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("session URL required")
	}
	if cfg.List == nil {
		return nil, fmt.Errorf("session list function required")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 64
	}

	s := &Session{
		cfg:    cfg,
		inbox:  NewInbox(),
		events: make(chan models.Message, cfg.EventBuffer),
	}
	s.state.onChange = cfg.OnStateChange
	return s, nil
}

// Inbox returns the session's de-duplicated message cache.
func (s *Session) Inbox() *Inbox {
	return s.inbox
}

// Events yields each message the first time the session sees it, whether it
// arrived pushed or through a re-list. Closed when Run returns. When the
// consumer falls behind, events are skipped but the Inbox still holds them.
func (s *Session) Events() <-chan models.Message {
	return s.events
}

// State returns the current subscription state.
func (s *Session) State() SubscriptionState {
	return s.state.load()
}

// Run connects and keeps the session alive until ctx is canceled, then
// moves to Closed. A Session cannot be restarted.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionStarted
	}
	defer close(s.events)
	defer s.state.transition(StateClosed)

	backoff := s.cfg.MinBackoff
	for {
		wasActive, err := s.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.state.transition(StateError)
		logging.Debug().Err(err).Str("state", StateError.String()).Msg("live session interrupted")
		s.state.transition(StateReconnecting)

		if wasActive {
			backoff = s.cfg.MinBackoff
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// connect dials, subscribes, re-lists and then reads frames until the
// connection fails. It reports whether the session reached Active.
func (s *Session) connect(ctx context.Context) (bool, error) {
	conn, resp, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, s.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	// Read before listing so events committed during the list are not lost.
	pushed := make(chan models.Message, s.cfg.EventBuffer)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readFrames(conn, pushed, readErr, done)

	listed, err := s.cfg.List(ctx)
	if err != nil {
		return false, fmt.Errorf("re-list: %w", err)
	}
	added, removed := s.inbox.Reconcile(listed)
	if len(removed) > 0 {
		logging.Debug().Int("removed", len(removed)).Msg("live session dropped deleted messages")
	}
	s.emit(added...)
	s.state.transition(StateActive)

	var ping <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case err := <-readErr:
			return true, err
		case m := <-pushed:
			if s.inbox.Add(m) {
				s.emit(m)
			}
		case <-ping:
			frame, _ := json.Marshal(Message{Type: MessageTypePing})
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return true, fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// readFrames decodes message_created frames until the connection fails.
func (s *Session) readFrames(conn *websocket.Conn, out chan<- models.Message, errc chan<- error, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type != MessageTypeMessageCreated {
			continue
		}
		var m models.Message
		if err := json.Unmarshal(frame.Data, &m); err != nil || m.ID == "" {
			continue
		}
		select {
		case out <- m:
		case <-done:
			return
		}
	}
}

func (s *Session) emit(msgs ...models.Message) {
	for _, m := range msgs {
		select {
		case s.events <- m:
		default:
		}
	}
}
