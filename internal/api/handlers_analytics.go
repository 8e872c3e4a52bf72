// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import "net/http"

// AnalyticsSummary returns the caller's inbox summary as of now.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.analytics.Summarize(r.Context(), userID, h.now())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(summary)
}
