package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifyhub/internal/bootstrap"
	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"
	"notifyhub/internal/infra/queue"
	"notifyhub/internal/router"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	slog.SetDefault(bootstrap.NewLogger(os.Stdout, cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	tasks := queue.NewClient(cfg.Redis)
	defer tasks.Close()

	handler := notification.NewHandler(rt.Dispatcher, queue.NewEnqueuer(tasks))
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router.New(cfg, handler, promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})),
		ReadTimeout: 15 * time.Second,
		// Batch dispatches run inline and can take a while.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", srv.Addr, "mode", cfg.Server.Mode)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server exited")
	return nil
}
