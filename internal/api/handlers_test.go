// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/whisperbox/internal/auth"
	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/database"
	"github.com/tomtom215/whisperbox/internal/logging"
	ws "github.com/tomtom215/whisperbox/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// testDBSemaphore serializes DuckDB usage across tests.
var (
	testDBSemaphore = make(chan struct{}, 1)
	testDBMutex     sync.Mutex
)

const identityHeader = "X-User-ID"

type testEnv struct {
	db      *database.DB
	hub     *ws.Hub
	handler http.Handler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"},
		Security: config.SecurityConfig{
			AuthMode:          "header",
			IdentityHeader:    identityHeader,
			RateLimitDisabled: true,
		},
		Polls: config.PollsConfig{RespondentPolicy: config.RespondentPolicyAllowAnonymous},
	}

	testDBMutex.Lock()
	db, err := database.New(&cfg.Database, cfg.Polls)
	testDBMutex.Unlock()
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	hub := ws.NewHub(cfg.WebSocket)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	authMw, err := auth.NewMiddleware(&cfg.Security, WriteError)
	if err != nil {
		t.Fatalf("auth.NewMiddleware: %v", err)
	}

	handler := NewHandler(db, cfg, hub, nil)
	router := NewRouter(handler, authMw, NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	return &testEnv{db: db, hub: hub, handler: router.SetupChi()}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// do sends a request as user (anonymous when empty) and decodes the envelope.
func (e *testEnv) do(t *testing.T, method, path, user string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(identityHeader, user)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectStatus(t *testing.T, got, want int, env envelope) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d (error: %+v)", got, want, env.Error)
	}
}

func expectErrorCode(t *testing.T, env envelope, code string) {
	t.Helper()
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.Error.Code != code {
		t.Fatalf("error code = %s, want %s (%s)", env.Error.Code, code, env.Error.Message)
	}
}

// createProfile registers user under username.
func (e *testEnv) createProfile(t *testing.T, user, username string) {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/v1/profiles", user, map[string]string{"username": username})
	expectStatus(t, status, http.StatusCreated, env)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
