// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package middleware provides HTTP middleware shared by every route.

Key Components:

  - RequestID: UUID request ids, echoed in X-Request-ID and attached to the
    logging context together with a fresh correlation id
  - PrometheusMetrics: request count, latency and in-flight gauge

Both are chi-compatible (func(http.Handler) http.Handler). Metrics are
labelled with the matched chi route pattern, not the raw path, so message
and poll ids never become label values.

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(rateLimit)
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})

The response writer is wrapped with chi's WrapResponseWriter, which keeps
http.Hijacker available for the websocket upgrade.
*/
package middleware
