// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package auth

import (
	"context"
	"net/http"
	"strings"
)

// maxIdentityLength bounds a forwarded profile id.
const maxIdentityLength = 128

// HeaderAuthenticator trusts a profile id forwarded by an upstream gateway.
// Only deploy it behind a proxy that strips the header from client requests.
type HeaderAuthenticator struct {
	header string
	mode   AuthMode
}

// NewHeaderAuthenticator reads the profile id from header.
func NewHeaderAuthenticator(header string, mode AuthMode) *HeaderAuthenticator {
	if header == "" {
		header = DefaultIdentityHeader
	}
	return &HeaderAuthenticator{header: header, mode: mode}
}

// Authenticate returns the forwarded identity.
func (a *HeaderAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Subject, error) {
	id := strings.TrimSpace(r.Header.Get(a.header))
	if id == "" {
		return nil, ErrNoCredentials
	}
	if len(id) > maxIdentityLength || strings.ContainsAny(id, " \t\r\n") {
		return nil, ErrInvalidCredentials
	}
	return &Subject{ID: id, AuthMethod: a.mode}, nil
}

// Name returns the authenticator name.
func (a *HeaderAuthenticator) Name() string {
	return string(a.mode)
}
