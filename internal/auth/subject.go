// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone trusts the identity header when present. Development only.
	AuthModeNone AuthMode = "none"

	// AuthModeJWT verifies HS256 bearer tokens.
	AuthModeJWT AuthMode = "jwt"

	// AuthModeHeader trusts an identity header set by an authenticating gateway.
	AuthModeHeader AuthMode = "header"
)

// DefaultIdentityHeader is used in none mode when no header is configured.
const DefaultIdentityHeader = "X-User-ID"

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "none", "":
		return AuthModeNone, nil
	case "jwt":
		return AuthModeJWT, nil
	case "header":
		return AuthModeHeader, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Authenticator resolves the caller from a request.
type Authenticator interface {
	// Authenticate returns the caller, or ErrNoCredentials when the request
	// carries no identity at all.
	Authenticate(ctx context.Context, r *http.Request) (*Subject, error)

	// Name returns the authenticator's name for logging.
	Name() string
}

// Subject is an authenticated caller. ID is the profile id.
type Subject struct {
	ID         string   `json:"id"`
	Username   string   `json:"username,omitempty"`
	Issuer     string   `json:"issuer,omitempty"`
	AuthMethod AuthMode `json:"auth_method"`
	ExpiresAt  int64    `json:"expires_at,omitempty"`
}

type contextKey string

// SubjectContextKey is the context key for *Subject.
const SubjectContextKey contextKey = "auth_subject"

// ContextWithSubject returns ctx carrying s.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, SubjectContextKey, s)
}

// GetSubject retrieves the Subject from the request context.
func GetSubject(ctx context.Context) *Subject {
	subject, ok := ctx.Value(SubjectContextKey).(*Subject)
	if !ok {
		return nil
	}
	return subject
}

// UserID returns the caller's profile id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if s := GetSubject(ctx); s != nil {
		return s.ID
	}
	return ""
}
