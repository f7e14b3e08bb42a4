// Package redisx wraps an optional go-redis client used as a
// distributed cache for federation query results (and, when enabled,
// session/nonce storage), wrapping go-redis as a small shared cache
// client rather than a single dedicated concern.
package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Adapter wraps *redis.Client with the narrow Get/Set/Del surface
// HyprCAT's optional caches need.
type Adapter struct {
	client *redis.Client
}

// New connects to addr/db with password (empty for no auth).
func New(addr, password string, db int) *Adapter {
	return &Adapter{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping verifies connectivity at startup.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Get returns the string value for key, and whether it was present.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key with the given TTL (0 means no expiry).
func (a *Adapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return a.client.Set(ctx, key, value, ttl).Err()
}

// Del removes key.
func (a *Adapter) Del(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}
