// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package services adapts Whisperbox components to suture.Service.
//
// Each wrapper depends on a one- or two-method interface rather than the
// concrete component, so the api, websocket and eventprocessor packages never
// import the supervisor and the wrappers can be driven by test doubles.
package services
