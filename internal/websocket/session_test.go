// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/models"
)

// liveServer upgrades /ws?recipient=<id> onto a hub and remembers the
// server-side connections so tests can sever them.
type liveServer struct {
	hub *Hub
	srv *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newLiveServer(t *testing.T, hub *Hub) *liveServer {
	t.Helper()
	ls := &liveServer{hub: hub}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ls.mu.Lock()
		ls.conns = append(ls.conns, conn)
		ls.mu.Unlock()
		_, _ = hub.Attach(r.Context(), conn, r.URL.Query().Get("recipient"))
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *liveServer) url(recipientID string) string {
	return "ws" + strings.TrimPrefix(ls.srv.URL, "http") + "/ws?recipient=" + recipientID
}

func (ls *liveServer) severAll() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for _, c := range ls.conns {
		_ = c.Close()
	}
	ls.conns = nil
}

// fakeInbox is the store side of the re-list.
type fakeInbox struct {
	mu    sync.Mutex
	msgs  []models.Message
	calls int
}

func (f *fakeInbox) add(m models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append([]models.Message{m}, f.msgs...)
}

func (f *fakeInbox) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.msgs {
		if m.ID == id {
			f.msgs = append(f.msgs[:i], f.msgs[i+1:]...)
			return
		}
	}
}

func (f *fakeInbox) list(context.Context) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]models.Message, len(f.msgs))
	copy(out, f.msgs)
	return out, nil
}

func (f *fakeInbox) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stateLog records state transitions.
type stateLog struct {
	mu     sync.Mutex
	states []SubscriptionState
}

func (l *stateLog) record(_, to SubscriptionState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, to)
}

func (l *stateLog) snapshot() []SubscriptionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SubscriptionState(nil), l.states...)
}

func nextEvent(t *testing.T, s *Session) models.Message {
	t.Helper()
	select {
	case m, ok := <-s.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("no event within 3s")
		return models.Message{}
	}
}

func TestNewSession_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewSession(SessionConfig{List: (&fakeInbox{}).list}); err == nil {
		t.Error("missing URL should be rejected")
	}
	if _, err := NewSession(SessionConfig{URL: "ws://localhost/ws"}); err == nil {
		t.Error("missing List should be rejected")
	}
}

func TestSession_RelistPushDedupAndReconnect(t *testing.T) {
	t.Parallel()

	hub := setupHub(t, config.WebSocketConfig{SendBuffer: 16})
	ls := newLiveServer(t, hub)

	store := &fakeInbox{}
	store.add(msgAt("m1", 1))

	log := &stateLog{}
	session, err := NewSession(SessionConfig{
		URL:           ls.url("r1"),
		List:          store.list,
		MinBackoff:    10 * time.Millisecond,
		MaxBackoff:    50 * time.Millisecond,
		OnStateChange: log.record,
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	// Connect: the initial list is delivered.
	if got := nextEvent(t, session); got.ID != "m1" {
		t.Fatalf("first event = %s, want m1 from re-list", got.ID)
	}
	waitFor(t, func() bool { return session.State() == StateActive && hub.RecipientClientCount("r1") == 1 })

	// Push: a newly created message arrives over the socket.
	m2 := msgAt("m2", 2)
	store.add(m2)
	hub.PublishMessage(&m2)
	if got := nextEvent(t, session); got.ID != "m2" {
		t.Fatalf("pushed event = %s, want m2", got.ID)
	}

	// Duplicate push is absorbed by the Inbox.
	hub.PublishMessage(&m2)
	select {
	case m := <-session.Events():
		t.Fatalf("duplicate delivery surfaced as event %s", m.ID)
	case <-time.After(100 * time.Millisecond):
	}

	// m3 is committed without a push and m1 is deleted elsewhere; only the
	// re-list after reconnect reflects both.
	store.add(msgAt("m3", 3))
	store.remove("m1")
	ls.severAll()

	if got := nextEvent(t, session); got.ID != "m3" {
		t.Fatalf("event after reconnect = %s, want m3 from re-list", got.ID)
	}
	waitFor(t, func() bool { return session.State() == StateActive })
	if store.listCalls() < 2 {
		t.Errorf("list calls = %d, want a re-list per connect", store.listCalls())
	}

	if got := ids(session.Inbox().Messages()); !equalIDs(got, []string{"m3", "m2"}) {
		t.Errorf("inbox = %v, want [m3 m2]", got)
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if session.State() != StateClosed {
		t.Errorf("final state = %s, want closed", session.State())
	}
	for range session.Events() {
		// Drain until closed.
	}

	states := log.snapshot()
	var sawError, sawReconnecting bool
	activeCount := 0
	for _, s := range states {
		switch s {
		case StateError:
			sawError = true
		case StateReconnecting:
			sawReconnecting = true
		case StateActive:
			activeCount++
		}
	}
	if !sawError || !sawReconnecting || activeCount < 2 {
		t.Errorf("transitions = %v, want error, reconnecting and a second active", states)
	}
	if states[len(states)-1] != StateClosed {
		t.Errorf("last transition = %s, want closed", states[len(states)-1])
	}

	if err := session.Run(context.Background()); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("second Run() = %v, want ErrSessionStarted", err)
	}
}

func TestSession_RetriesUntilServerAvailable(t *testing.T) {
	t.Parallel()

	session, err := NewSession(SessionConfig{
		URL:        "ws://127.0.0.1:1/ws",
		List:       (&fakeInbox{}).list,
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = session.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
	if session.State() != StateClosed {
		t.Errorf("state = %s, want closed", session.State())
	}
}

func TestClient_PingGetsPong(t *testing.T) {
	t.Parallel()

	hub := setupHub(t, config.WebSocketConfig{})
	ls := newLiveServer(t, hub)

	conn, resp, err := websocket.DefaultDialer.Dial(ls.url("r1"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if string(data) != `{"type":"pong"}` {
		t.Errorf("frame = %s, want pong", data)
	}
}
