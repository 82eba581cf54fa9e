package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/polyva-3d/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	stops    *[]string
	mu       *sync.Mutex
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.mu.Lock()
	*s.stops = append(*s.stops, s.name)
	s.mu.Unlock()
	return s.stopErr
}

func TestParseMode(t *testing.T) {
	cases := map[string]string{"": ModeAll, " API ": ModeAPI, "worker": ModeWorker, "all": ModeAll}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseMode("cron"); err == nil {
		t.Fatalf("expected unknown mode to be rejected")
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	if _, err := BuildRunner(&config.Config{}, "cron"); err == nil {
		t.Fatalf("expected unknown mode to be rejected")
	}
}

func TestRunnerStopsAllServicesInOrderAndJoinsErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		stops []string
	)
	startErr := errors.New("listen failed")
	stopErr := errors.New("flush failed")
	runner := NewRunner(
		&fakeService{name: "http", startErr: startErr, stops: &stops, mu: &mu},
		&fakeService{name: "worker", stopErr: stopErr, stops: &stops, mu: &mu},
	)

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, startErr) || !errors.Is(err, stopErr) {
		t.Fatalf("expected start and stop errors joined, got %v", err)
	}
	if len(stops) != 2 || stops[0] != "http" || stops[1] != "worker" {
		t.Fatalf("unexpected stop order: %v", stops)
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	var (
		mu    sync.Mutex
		stops []string
	)
	runner := NewRunner(&fakeService{name: "worker", stops: &stops, mu: &mu})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if len(stops) != 1 {
		t.Fatalf("expected worker stopped, got %v", stops)
	}
}

func TestNewHTTPServiceTimeouts(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Generation.TimeoutSeconds = 90

	svc := NewHTTPService(cfg, nil)
	if svc.server.Addr != "127.0.0.1:0" {
		t.Fatalf("unexpected addr: %s", svc.server.Addr)
	}
	if svc.server.ReadHeaderTimeout != defaultReadHeaderTimeout || svc.server.IdleTimeout != defaultIdleTimeout {
		t.Fatalf("unexpected read/idle timeouts: %v %v", svc.server.ReadHeaderTimeout, svc.server.IdleTimeout)
	}
	if want := 90*time.Second + shutdownGrace; svc.server.WriteTimeout != want {
		t.Fatalf("write timeout = %v, want %v", svc.server.WriteTimeout, want)
	}
}

func TestShutdownTimeoutCoversGeneration(t *testing.T) {
	if got := shutdownTimeout(nil); got != defaultShutdownTimeout {
		t.Fatalf("nil config: %v", got)
	}
	cfg := &config.Config{}
	cfg.Generation.TimeoutSeconds = 60
	if got := shutdownTimeout(cfg); got != 65*time.Second {
		t.Fatalf("generation timeout: %v", got)
	}
	opts := normalizeOptions(Options{Config: cfg})
	if opts.ShutdownTimeout != 65*time.Second || opts.Mode != ModeAll || opts.Logger == nil {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
