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

	"notifyhub/internal/bootstrap"
	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"
	"notifyhub/internal/infra/queue"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsAddr is where the worker exposes its own /metrics.
const metricsAddr = ":9091"

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "error", err)
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

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TaskTypeDispatch, notification.NewWorker(rt.Dispatcher).ProcessTask)

	srv := queue.NewServer(cfg.Redis, cfg.Queue.Concurrency)
	// Start returns once processing has begun, unlike Run which blocks on signals itself.
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("starting task server: %w", err)
	}
	slog.Info("worker started", "queue", queue.QueueName, "concurrency", cfg.Queue.Concurrency)

	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down worker")
	srv.Shutdown()
	_ = metricsSrv.Close()
	slog.Info("worker exited")
	return nil
}
