// Package inflight rejects a second submission of an action while the first
// is still running.
package inflight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pulasafe/internal/cache"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard marks (action, subject) busy until the returned release is called.
// Acquire fails with a CONFLICT AppError while the pair is busy.
type Guard interface {
	Acquire(ctx context.Context, action, subject string) (release func(), err error)
}

func conflict(action string) error {
	observability.InflightRejections.WithLabelValues(action).Inc()
	return models.NewConflictError(fmt.Sprintf("%s already in progress", action))
}

// Local is an in-process guard.
type Local struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewLocal() *Local {
	return &Local{busy: make(map[string]struct{})}
}

func (g *Local) Acquire(_ context.Context, action, subject string) (func(), error) {
	key := action + ":" + subject
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[key]; ok {
		return nil, conflict(action)
	}
	g.busy[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether (action, subject) is held.
func (g *Local) Busy(action, subject string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[action+":"+subject]
	return ok
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a guard shared by every gateway instance. The TTL bounds how long a
// crashed holder can keep an action busy.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Acquire fails open when Redis is unavailable.
func (g *Redis) Acquire(ctx context.Context, action, subject string) (func(), error) {
	noop := func() {}
	if g.rdb == nil {
		return noop, nil
	}

	key := cache.InflightKey(action, subject)
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		slog.WarnContext(ctx, "in-flight guard unavailable", slog.String("action", action), slog.String("error", err.Error()))
		return noop, nil
	}
	if !ok {
		return nil, conflict(action)
	}

	return func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), g.rdb, []string{key}, token).Err(); err != nil {
			slog.WarnContext(ctx, "failed to release in-flight guard", slog.String("key", key), slog.String("error", err.Error()))
		}
	}, nil
}
