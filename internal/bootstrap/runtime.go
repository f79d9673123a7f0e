package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"
	"notifyhub/internal/infra/cache"
	"notifyhub/internal/infra/metrics"
	"notifyhub/internal/infra/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime is the dependency graph shared by the API server and the worker.
type Runtime struct {
	Config     *config.Config
	Registry   *prometheus.Registry
	Users      *cache.UserCache
	Dispatcher *notification.Dispatcher
}

// NewRuntime wires store, recipient cache, metrics and dispatcher from cfg.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	supabaseStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		return nil, fmt.Errorf("initializing supabase store: %w", err)
	}

	users := cache.NewUserCache(
		supabaseStore,
		cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB),
		cfg.Dispatch.UserCacheTTL(),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher, err := NewDispatcher(ctx, cfg, users, metrics.NewRecorder(registry))
	if err != nil {
		_ = users.Close()
		return nil, err
	}

	slog.Info("runtime initialized", "user_cache_ttl", cfg.Dispatch.UserCacheTTL())
	return &Runtime{Config: cfg, Registry: registry, Users: users, Dispatcher: dispatcher}, nil
}

// Close releases the Redis connection held by the user cache.
func (r *Runtime) Close() error {
	return r.Users.Close()
}
