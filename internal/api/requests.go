// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/whisperbox/internal/validation"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 64 * 1024

// decodeAndValidate reads a JSON body into dst and validates it. On failure it
// writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		rw := NewResponseWriter(w, r)
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			rw.BadRequest("Request body is required")
		case errors.As(err, &maxErr):
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large")
		default:
			rw.BadRequest("Invalid JSON body")
		}
		return false
	}

	return validateRequest(w, r, dst)
}

// validateRequest runs struct validation and writes a 400 on failure.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}
