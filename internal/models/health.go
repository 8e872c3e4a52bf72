// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

// HealthStatus represents the service health check response.
type HealthStatus struct {
	Status            string  `json:"status"` // healthy or degraded
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	EventBackend      string  `json:"event_backend"`
	EventBusHealthy   bool    `json:"event_bus_healthy"`
	LiveSessions      int     `json:"live_sessions"`
	PublishFailures   int64   `json:"publish_failures"`
	Uptime            float64 `json:"uptime_seconds"`
}
