// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/whisperbox/internal/api"
	"github.com/tomtom215/whisperbox/internal/auth"
	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/database"
	"github.com/tomtom215/whisperbox/internal/eventprocessor"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/supervisor"
	"github.com/tomtom215/whisperbox/internal/supervisor/services"
	ws "github.com/tomtom215/whisperbox/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("events_backend", cfg.Events.Backend).
		Msg("Starting Whisperbox")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Whisperbox stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, cfg.Polls)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	bus, err := eventprocessor.NewBus(ctx, eventprocessor.BusConfigFromEvents(&cfg.Events), nil)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	// Messages commit first and are published afterwards; a failed publish
	// never fails the send.
	db.SetMessagePublisher(bus.Publisher())

	hub := ws.NewHub(cfg.WebSocket)
	bridge := ws.NewBridge(hub, bus.Subscriber(), bus.Topic())

	authMiddleware, err := auth.NewMiddleware(&cfg.Security, api.WriteError)
	if err != nil {
		return fmt.Errorf("initialize auth middleware: %w", err)
	}
	logSecurityWarnings(cfg)

	handler := api.NewHandler(db, cfg, hub, bus)
	chiMw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, authMiddleware, chiMw)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddMessagingService(services.NewEventBusServiceWithTimeout(bus, shutdownTimeout))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(bridge)
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Waiting for supervisor tree to stop")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	tree.LogUnstopped()

	// The bus service closes the bus when it stops; this covers a tree that
	// exited before the service ever ran.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := bus.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Event bus shutdown incomplete")
	}
	if failures := db.PublishFailures(); failures > 0 {
		logging.Warn().Int64("publish_failures", failures).Msg("Some messages were stored but not delivered live")
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return treeErr
	}
	return nil
}

func logSecurityWarnings(cfg *config.Config) {
	if mode, _ := auth.ParseAuthMode(cfg.Security.AuthMode); mode == auth.AuthModeNone {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: caller identity is not verified (AUTH_MODE=none)")
		logging.Warn().Msg("  Any client can act as any recipient by setting the identity header.")
		logging.Warn().Msg("  Use AUTH_MODE=jwt or AUTH_MODE=header in production.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set CORS_ORIGINS explicitly")
	}
}
