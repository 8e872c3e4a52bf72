// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/whisperbox/internal/config"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func newTestManager(t *testing.T, issuer string) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, JWTIssuer: issuer})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "whisperbox-test")
	token, err := m.GenerateToken("user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "whisperbox-test")
	other := newTestManager(t, "someone-else")

	expired, _ := m.GenerateToken("user-1", "", -time.Minute)
	wrongIssuer, _ := other.GenerateToken("user-1", "", time.Hour)
	noSubject, _ := m.GenerateToken("", "", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong issuer", wrongIssuer},
		{"no subject", noSubject},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestJWTAuthenticator_Sources(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "")
	a := NewJWTAuthenticator(m)
	token, _ := m.GenerateToken("user-7", "", time.Hour)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantErr error
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
		},
		{
			name:    "cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) },
		},
		{
			name: "websocket query parameter",
			prepare: func(r *http.Request) {
				r.Header.Set("Upgrade", "websocket")
				q := r.URL.Query()
				q.Set("access_token", token)
				r.URL.RawQuery = q.Encode()
			},
		},
		{
			name: "query parameter ignored without upgrade",
			prepare: func(r *http.Request) {
				r.URL.RawQuery = "access_token=" + token
			},
			wantErr: ErrNoCredentials,
		},
		{
			name:    "no credentials",
			prepare: func(*http.Request) {},
			wantErr: ErrNoCredentials,
		},
		{
			name:    "invalid token",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
			tt.prepare(r)

			s, err := a.Authenticate(context.Background(), r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if s.ID != "user-7" || s.AuthMethod != AuthModeJWT {
				t.Errorf("subject = %+v", s)
			}
		})
	}
}

func TestJWTAuthenticator_Expired(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "")
	token, _ := m.GenerateToken("user-1", "", -time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	if _, err := NewJWTAuthenticator(m).Authenticate(context.Background(), r); !errors.Is(err, ErrExpiredCredentials) {
		t.Fatalf("err = %v, want ErrExpiredCredentials", err)
	}
}
