// Package cache is a TTL key-value store with two backends: an always-on
// in-process map with a background janitor, and an optional Redis client
// that is consulted first when configured. If Redis is unreachable at
// startup the cache falls back to the in-process backend alone rather than
// failing the whole service — prices and analyses degrade to shorter-lived,
// single-instance caching instead of becoming unavailable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by Get/GetJSON when no value exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss reports whether err is ErrCacheMiss.
func IsCacheMiss(err error) bool { return errors.Is(err, ErrCacheMiss) }

// Config controls the Redis backend; a zero-value Addr disables Redis and
// runs in-process only.
type Config struct {
	Addr                string
	Password            string
	DB                  int
	PoolSize            int
	MinIdleConns        int
	DefaultTTL          time.Duration
	HealthCheckInterval time.Duration
	JanitorInterval     time.Duration
}

// Cache is the two-backend TTL store.
type Cache struct {
	redis  *redis.Client
	local  *localStore
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New builds a Cache. When cfg.Addr is set, it attempts to connect to Redis;
// on failure it logs a warning and proceeds in-process only.
func New(cfg Config, logger *zap.Logger) *Cache {
	logger = logger.With(zap.String("component", "cache"))

	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}

	c := &Cache{
		local:  newLocalStore(cfg.JanitorInterval),
		config: cfg,
		logger: logger,
	}

	if cfg.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-process cache only", zap.Error(err))
		} else {
			c.redis = client
			if cfg.HealthCheckInterval > 0 {
				go c.healthCheckLoop(cfg.HealthCheckInterval)
			}
			logger.Info("cache connected to redis", zap.String("addr", cfg.Addr))
		}
	} else {
		logger.Info("cache running in-process only")
	}

	return c
}

// Get returns the raw string stored at key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", fmt.Errorf("cache: closed")
	}

	if c.redis != nil {
		val, err := c.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			return val, nil
		case errors.Is(err, redis.Nil):
			// fall through to local, in case redis evicted but local still has it
		default:
			c.logger.Error("redis get failed, falling back to local", zap.String("key", key), zap.Error(err))
		}
	}

	val, ok := c.local.get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

// Set stores value at key with ttl (DefaultTTL when ttl is zero), writing to
// both backends so a lost Redis connection later still serves from local.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("cache: closed")
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	c.local.set(key, value, ttl)

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
			c.logger.Error("redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// GetJSON unmarshals the value at key into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache: unmarshal failed: %w", err)
	}
	return nil
}

// SetJSON marshals value and stores it at key.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal failed: %w", err)
	}
	return c.Set(ctx, key, string(data), ttl)
}

// Delete removes keys from both backends.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("cache: closed")
	}
	for _, k := range keys {
		c.local.delete(k)
	}
	if c.redis != nil && len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.logger.Error("redis delete failed", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	return nil
}

// Ping checks the Redis backend, if configured; a local-only cache always
// reports healthy.
func (c *Cache) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("cache: closed")
	}
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close shuts down the janitor and, if present, the Redis client.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.local.stop()
	c.logger.Info("closing cache")
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *Cache) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Ping(ctx); err != nil {
			c.logger.Error("redis health check failed", zap.Error(err))
		}
		cancel()
	}
}
