// Package cache is a JSON key/value cache on Redis that degrades to a no-op
// when Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL applies when a caller passes ttl <= 0.
const DefaultTTL = 24 * time.Hour

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis caches JSON values. A nil *Redis, or one built without a reachable
// server, is a valid always-miss cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	warnedUnavailable atomic.Bool
}

// NewRedis connects and pings. On failure it logs once and returns a
// bypassing cache rather than an error.
func NewRedis(ctx context.Context, opts Options, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("cache")
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opts.Addr == "" {
		logger.Info("no redis address configured, cache disabled")
		return &Redis{ttl: ttl, logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, bypassing cache", zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return &Redis{ttl: ttl, logger: logger}
	}

	logger.Info("redis cache connected", zap.String("addr", opts.Addr))
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Available reports whether a live connection backs the cache.
func (r *Redis) Available() bool {
	return r != nil && r.client != nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis error, continuing without cache", zap.Error(err))
	}
}

// GetJSON decodes the value at key into out. A miss returns false, nil.
func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !r.Available() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value at key. ttl <= 0 uses the configured TTL.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Available() {
		return nil
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.Available() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (r *Redis) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if !r.Available() || prefix == "" {
		return 0, nil
	}
	n := 0
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("redis delete failed", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		n++
	}
	return n, iter.Err()
}

// Close releases the connection.
func (r *Redis) Close() error {
	if !r.Available() {
		return nil
	}
	return r.client.Close()
}
