// agentui serves the agent-driven UI protocol: REST endpoints for session
// lifecycle and user actions, SSE and WebSocket streams for UI patch
// events, and an LLM-backed agent loop that produces them.
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kibadist/agentui/internal/agent"
	"github.com/kibadist/agentui/internal/api"
	"github.com/kibadist/agentui/internal/bus"
	"github.com/kibadist/agentui/internal/config"
	"github.com/kibadist/agentui/internal/logger"
	"github.com/kibadist/agentui/internal/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentui:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bus.New(bus.Config{
		TTL:              cfg.SessionTTL,
		CleanupInterval:  cfg.CleanupInterval,
		SubscriberBuffer: cfg.SubscriberBuffer,
	}, log)
	b.Start(ctx)
	defer b.Shutdown()

	tracker := state.NewTracker(b, log)

	runner, err := selectRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init agent runner: %w", err)
	}
	loop := agent.NewLoop(b, runner, log)

	handler := api.NewHandler(b, tracker, loop, cfg.ActionRPS, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	handler.Mount(r)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// selectRunner picks the agent backend from the configured credentials,
// falling back to the scripted producer when no API key is set.
func selectRunner(ctx context.Context, cfg config.Config) (agent.Runner, error) {
	opts := agent.Options{}
	switch {
	case cfg.OpenAIKey != "":
		return agent.NewOpenAIRunner(cfg.OpenAIKey, cfg.Model, opts), nil
	case cfg.GeminiKey != "":
		return agent.NewGeminiRunner(ctx, cfg.GeminiKey, cfg.Model, opts)
	default:
		return agent.NewScripted(), nil
	}
}
