// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package auth

import (
	"errors"
	"net/http"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/logging"
)

// ErrorWriter writes an authentication failure. The API layer supplies one
// that renders its JSON envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

func plainErrorWriter(w http.ResponseWriter, _ *http.Request, status int, _ string, message string) {
	http.Error(w, message, status)
}

// Middleware resolves the caller for each request.
type Middleware struct {
	authenticator Authenticator
	mode          AuthMode
	writeError    ErrorWriter
}

// NewMiddleware builds the authenticator for cfg.AuthMode.
func NewMiddleware(cfg *config.SecurityConfig, writeError ErrorWriter) (*Middleware, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	if writeError == nil {
		writeError = plainErrorWriter
	}

	m := &Middleware{mode: mode, writeError: writeError}
	switch mode {
	case AuthModeJWT:
		manager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.authenticator = NewJWTAuthenticator(manager)
	case AuthModeHeader:
		if cfg.IdentityHeader == "" {
			return nil, errors.New("identity header required for header auth mode")
		}
		m.authenticator = NewHeaderAuthenticator(cfg.IdentityHeader, AuthModeHeader)
	case AuthModeNone:
		m.authenticator = NewHeaderAuthenticator(cfg.IdentityHeader, AuthModeNone)
	}
	return m, nil
}

// NewMiddlewareWithAuthenticator wraps an existing Authenticator.
func NewMiddlewareWithAuthenticator(a Authenticator, writeError ErrorWriter) *Middleware {
	if writeError == nil {
		writeError = plainErrorWriter
	}
	return &Middleware{authenticator: a, mode: AuthMode(a.Name()), writeError: writeError}
}

// Mode returns the configured mode.
func (m *Middleware) Mode() AuthMode {
	return m.mode
}

// RequireAuth rejects requests without a valid identity with 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// OptionalAuth attaches the caller when credentials are present and valid.
// Missing credentials pass through anonymously; invalid ones are rejected so
// a broken token is not silently treated as anonymous.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		switch {
		case err == nil:
			r = r.WithContext(ContextWithSubject(r.Context(), subject))
		case errors.Is(err, ErrNoCredentials):
		default:
			m.handleAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Debug().
		Err(err).
		Str("auth_mode", m.mode.String()).
		Str("path", r.URL.Path).
		Msg("Authentication failed")

	switch {
	case errors.Is(err, ErrNoCredentials):
		m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, ErrExpiredCredentials):
		m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Credentials expired")
	default:
		m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
	}
}
