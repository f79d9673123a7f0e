package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notifyhub/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

var _ notification.Store = (*UserCache)(nil)

const keyPrefix = "notifyhub:user:"

// UserCache wraps a Store and keeps recipient lookups in Redis for a short
// TTL. Subscriptions are always read through so deactivations are seen
// immediately. Redis failures fall back to the wrapped store.
type UserCache struct {
	notification.Store
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client for the cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewUserCache decorates next with a Redis read-through cache.
func NewUserCache(next notification.Store, client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{Store: next, client: client, ttl: ttl}
}

// GetUserByID serves the user from Redis when present, otherwise loads it
// from the wrapped store and caches it. Missing users are not cached.
func (c *UserCache) GetUserByID(ctx context.Context, id string) (*notification.User, error) {
	key := keyPrefix + id

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u notification.User
		if err := json.Unmarshal(raw, &u); err == nil {
			return &u, nil
		}
		slog.Warn("discarding corrupt cached user", "user_id", id)
	case !errors.Is(err, redis.Nil):
		slog.Warn("user cache read failed", "user_id", id, "error", err)
	}

	u, err := c.Store.GetUserByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}

	if err := c.set(ctx, key, u); err != nil {
		slog.Warn("user cache write failed", "user_id", id, "error", err)
	}

	return u, nil
}

func (c *UserCache) set(ctx context.Context, key string, u *notification.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *UserCache) Close() error {
	return c.client.Close()
}
