// Package cache is a JSON value cache over a Redis connection pool. Failures
// are logged and reported as misses; an unconfigured cache is a no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/louisbranch/addon-demo/internal/platform/logging"
	"github.com/louisbranch/addon-demo/internal/platform/observability"
	"github.com/louisbranch/addon-demo/internal/platform/timeouts"
)

const (
	// DefaultTTL applies when Set is called without a positive TTL.
	DefaultTTL = time.Hour
	// MaxConnectAttempts bounds Connect before the cache degrades.
	MaxConnectAttempts = 10

	retryStep     = 100 * time.Millisecond
	maxRetryDelay = 3 * time.Second
)

// Config configures a Cache.
type Config struct {
	URL     string
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Cache wraps a redigo pool. The zero value and a nil *Cache are disabled.
type Cache struct {
	pool     *redis.Pool
	logger   *slog.Logger
	metrics  *observability.Metrics
	degraded atomic.Bool
	sleep    func(context.Context, time.Duration) error
}

// New builds a pool for cfg.URL without dialing. An empty URL disables the
// cache; an unparsable one is logged and also disables it.
func New(cfg Config) *Cache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{logger: logger, metrics: cfg.Metrics, sleep: sleepContext}

	rawURL := strings.TrimSpace(cfg.URL)
	if rawURL == "" {
		logger.Warn("REDIS_URL not set - Redis caching disabled")
		return c
	}
	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		logger.Error("Failed to connect to Redis", logging.Err(fmt.Errorf("unsupported redis url scheme")))
		return c
	}
	c.pool = newPool(rawURL)
	return c
}

func newPool(rawURL string) *redis.Pool {
	options := []redis.DialOption{
		redis.DialConnectTimeout(timeouts.CacheDial),
		redis.DialReadTimeout(timeouts.CacheOperation),
		redis.DialWriteTimeout(timeouts.CacheOperation),
	}
	if strings.HasPrefix(rawURL, "rediss://") {
		// Managed Redis presents self-signed certificates.
		options = append(options, redis.DialTLSSkipVerify(true))
	}
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, rawURL, options...)
		},
		TestOnBorrow: func(conn redis.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := conn.Do("PING")
			return err
		},
	}
}

// RetryDelay is the wait before retry attempt n (1-based).
func RetryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt) * retryStep
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// Configured reports whether a Redis URL was accepted.
func (c *Cache) Configured() bool {
	return c != nil && c.pool != nil
}

func (c *Cache) usable() bool {
	return c.Configured() && !c.degraded.Load()
}

// Connect pings Redis until it answers, waiting RetryDelay between attempts.
// After MaxConnectAttempts failures the cache stays degraded until a later
// Ready call succeeds.
func (c *Cache) Connect(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	for attempt := 1; attempt <= MaxConnectAttempts; attempt++ {
		err := c.ping(ctx)
		if err == nil {
			c.degraded.Store(false)
			c.logger.Info("Connected to Redis")
			c.logger.Info("Redis client ready")
			return true
		}
		c.logger.Error("Redis error", "attempt", attempt, logging.Err(err))
		if attempt == MaxConnectAttempts {
			break
		}
		if err := c.sleep(ctx, RetryDelay(attempt)); err != nil {
			c.logger.Error("Failed to connect to Redis", logging.Err(err))
			c.degraded.Store(true)
			return false
		}
	}
	c.logger.Error("Redis reconnection failed after 10 attempts")
	c.degraded.Store(true)
	return false
}

// Ready reports whether the cache is configured and answers PING. A
// successful PING clears a degraded state left by Connect.
func (c *Cache) Ready(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	if err := c.ping(ctx); err != nil {
		return false
	}
	c.degraded.Store(false)
	return true
}

func (c *Cache) ping(ctx context.Context) error {
	_, err := c.do(ctx, "PING")
	return err
}

// Get decodes the JSON value stored at key into dest. It returns false on a
// miss, a decode failure, a transport error, or when disabled.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.usable() {
		c.record("get", "disabled")
		return false
	}
	raw, err := redis.Bytes(c.do(ctx, "GET", key))
	if errors.Is(err, redis.ErrNil) {
		c.record("get", "miss")
		return false
	}
	if err != nil {
		c.record("get", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error getting key %s from Redis", key), "key", key, logging.Err(err))
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.record("get", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error getting key %s from Redis", key), "key", key, logging.Err(err))
		return false
	}
	c.record("get", "hit")
	return true
}

// Set stores value as JSON with SETEX. A non-positive ttl means DefaultTTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !c.usable() {
		c.record("set", "disabled")
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.record("set", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error setting key %s in Redis", key), "key", key, logging.Err(err))
		return false
	}
	if _, err := c.do(ctx, "SETEX", key, seconds, payload); err != nil {
		c.record("set", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error setting key %s in Redis", key), "key", key, logging.Err(err))
		return false
	}
	c.record("set", "ok")
	return true
}

// Delete removes key. It returns true when the command succeeded, whether or
// not the key existed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if !c.usable() {
		c.record("del", "disabled")
		return false
	}
	if _, err := c.do(ctx, "DEL", key); err != nil {
		c.record("del", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error deleting key %s from Redis", key), "key", key, logging.Err(err))
		return false
	}
	c.record("del", "ok")
	return true
}

// Increment atomically adds one to the integer at key and returns the new
// value, or 0 on failure or when disabled.
func (c *Cache) Increment(ctx context.Context, key string) int64 {
	if !c.usable() {
		c.record("incr", "disabled")
		return 0
	}
	value, err := redis.Int64(c.do(ctx, "INCR", key))
	if err != nil {
		c.record("incr", "error")
		c.logger.ErrorContext(ctx, fmt.Sprintf("Error incrementing key %s in Redis", key), "key", key, logging.Err(err))
		return 0
	}
	c.record("incr", "ok")
	return value
}

// Close shuts the pool down.
func (c *Cache) Close() error {
	if !c.Configured() {
		return nil
	}
	err := c.pool.Close()
	c.logger.Info("Redis connection closed")
	return err
}

func (c *Cache) do(ctx context.Context, command string, args ...any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CacheOperation)
	defer cancel()

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, command, args...)
}

func (c *Cache) record(op, result string) {
	if c == nil {
		return
	}
	c.metrics.CacheOp(op, result)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
