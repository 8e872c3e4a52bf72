// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// countingService runs until canceled, failing its first failures starts.
type countingService struct {
	name     string
	failures int32
	starts   atomic.Int32
	stops    atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	defer s.stops.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewSupervisorTree(t *testing.T) {
	t.Parallel()

	t.Run("requires a logger", func(t *testing.T) {
		t.Parallel()
		if _, err := NewSupervisorTree(nil, TreeConfig{}); err == nil {
			t.Fatal("expected error for nil logger")
		}
	})

	t.Run("applies defaults for zero config", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.Root() == nil {
			t.Fatal("root supervisor is nil")
		}
		if got, want := tree.Config(), DefaultTreeConfig(); got != want {
			t.Errorf("config = %+v, want %+v", got, want)
		}
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second, ShutdownTimeout: 2 * time.Second})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		cfg := tree.Config()
		if cfg.FailureBackoff != time.Second || cfg.ShutdownTimeout != 2*time.Second {
			t.Errorf("explicit values overwritten: %+v", cfg)
		}
		if cfg.FailureThreshold != 5 {
			t.Errorf("FailureThreshold = %v, want default 5", cfg.FailureThreshold)
		}
	})
}

func TestSupervisorTree_StartsBothLayersAndStops(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	messaging := &countingService{name: "messaging"}
	api := &countingService{name: "api"}
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitFor(t, 2*time.Second, func() bool {
		return messaging.starts.Load() == 1 && api.starts.Load() == 1
	})
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down")
	}
	if messaging.stops.Load() != 1 || api.stops.Load() != 1 {
		t.Errorf("stops = %d/%d, want 1/1", messaging.stops.Load(), api.stops.Load())
	}
	tree.LogUnstopped()
}

func TestSupervisorTree_RestartsFailingServiceInIsolation(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	failing := &countingService{name: "failing", failures: 2}
	stable := &countingService{name: "stable"}
	tree.AddMessagingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, 3*time.Second, func() bool { return failing.starts.Load() >= 3 })
	if got := stable.starts.Load(); got != 1 {
		t.Errorf("stable service started %d times, want 1", got)
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_RemoveMessagingService(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	svc := &countingService{name: "removable"}
	token := tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitFor(t, 2*time.Second, func() bool { return svc.starts.Load() == 1 })
	if err := tree.RemoveMessagingService(token); err != nil {
		t.Fatalf("RemoveMessagingService: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return svc.stops.Load() == 1 })

	cancel()
	<-errCh
}
