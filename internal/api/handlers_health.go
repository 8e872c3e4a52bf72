// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/whisperbox/internal/models"
)

const healthPingTimeout = 2 * time.Second

// Health reports database connectivity, event bus state and the number of
// live sessions. A degraded service still answers 200 so load balancers keep
// routing reads; /health/ready is the strict check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.healthStatus(r.Context()))
}

// HealthLive returns 200 while the process is alive.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 503 unless the database answers and the bus is healthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.healthStatus(r.Context())
	rw := NewResponseWriter(w, r)
	if status.Status != "healthy" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service not ready", status)
		return
	}
	rw.Success(status)
}

func (h *Handler) healthStatus(ctx context.Context) models.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status:            "healthy",
		Version:           Version,
		DatabaseConnected: h.db != nil && h.db.Ping(ctx) == nil,
		EventBackend:      "none",
		EventBusHealthy:   true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.db != nil {
		status.PublishFailures = h.db.PublishFailures()
	}
	if h.bus != nil {
		status.EventBackend = h.bus.Backend()
		status.EventBusHealthy = h.bus.Healthy()
	}
	if h.wsHub != nil {
		status.LiveSessions = h.wsHub.GetClientCount()
	}

	if !status.DatabaseConnected || !status.EventBusHealthy {
		status.Status = "degraded"
	}
	return status
}
