// Package cache provides the Redis client used for sessions, rate limits and in-flight guards.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pulasafe/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds a client for addr, which is either host:port or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})
	return c, nil
}

// InitRedis connects the process-wide client. On failure the client stays nil
// and callers run without Redis.
func InitRedis(addr string) *redis.Client {
	c, err := NewClient(addr)
	if err != nil {
		slog.Warn("invalid REDIS_URL, continuing without redis", slog.String("addr", addr), slog.String("error", err.Error()))
		client = nil
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, continuing without redis", slog.String("error", err.Error()))
		_ = c.Close()
		client = nil
		return nil
	}
	slog.Info("redis connected", slog.String("addr", addr))
	client = c
	return client
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}
