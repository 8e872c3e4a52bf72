// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/whisperbox/internal/logging"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"generates when missing", "", false},
		{"reuses upstream id", "upstream-123", true},
		{"replaces oversized id", strings.Repeat("a", maxRequestIDLength+1), false},
		{"replaces id with control characters", "bad\nid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ctxID, correlationID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = logging.RequestIDFromContext(r.Context())
				correlationID = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			headerID := rec.Header().Get(RequestIDHeader)
			if headerID != ctxID {
				t.Errorf("header id %q != context id %q", headerID, ctxID)
			}
			if correlationID == "" {
				t.Error("expected correlation id in context")
			}
			if tt.wantSame {
				if headerID != tt.incoming {
					t.Errorf("id = %q, want %q", headerID, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(headerID); err != nil {
				t.Errorf("generated id %q is not a UUID", headerID)
			}
		})
	}
}
