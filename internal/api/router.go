// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/whisperbox/internal/auth"
	"github.com/tomtom215/whisperbox/internal/middleware"
)

// Router wires handlers, authentication and middleware.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: chiMw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Public share page
		r.Get("/profiles/{username}", h.GetPublicProfile)
		r.Get("/profiles/{username}/polls", h.ListPublicPolls)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitSend)).
			Post("/profiles/{username}/messages", h.SendMessage)

		r.Get("/polls/{id}", h.GetPoll)
		r.Get("/polls/{id}/tally", h.GetPollTally)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitVote), router.auth.OptionalAuth).
			Post("/polls/{id}/votes", h.CastVote)

		// Owner routes
		r.Group(func(r chi.Router) {
			r.Use(router.auth.RequireAuth)

			r.Post("/profiles", h.CreateProfile)
			r.Get("/profiles/me", h.GetMyProfile)
			r.Put("/profiles/me", h.UpdateMyProfile)

			r.Get("/messages", h.ListMessages)
			r.Post("/messages/read", h.MarkRead)
			r.Get("/messages/{id}", h.GetMessage)
			r.Post("/messages/{id}/answered", h.MarkAnswered)
			r.Delete("/messages/{id}", h.DeleteMessage)

			r.Get("/polls", h.ListPolls)
			r.Post("/polls", h.CreatePoll)
			r.Post("/polls/{id}/toggle", h.TogglePoll)
			r.Delete("/polls/{id}", h.DeletePoll)

			r.Get("/analytics/summary", h.AnalyticsSummary)

			r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).
				Get("/ws", h.WebSocket)
		})
	})

	return r
}
