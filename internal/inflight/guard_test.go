package inflight

import (
	"context"
	"testing"
	"time"

	"pulasafe/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	g := NewLocal()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "like", "7")
	require.NoError(t, err)
	assert.True(t, g.Busy("like", "7"))

	_, err = g.Acquire(ctx, "like", "7")
	assert.True(t, models.HasCode(err, models.CodeConflict))

	other, err := g.Acquire(ctx, "like", "8")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, g.Busy("like", "7"))

	again, err := g.Acquire(ctx, "like", "7")
	require.NoError(t, err)
	again()
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewRedis(rdb, 30*time.Second)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "delete", "u1:9")
	require.NoError(t, err)
	assert.True(t, mr.Exists("pulasafe:inflight:delete:u1:9"))

	_, err = g.Acquire(ctx, "delete", "u1:9")
	assert.True(t, models.HasCode(err, models.CodeConflict))

	release()
	assert.False(t, mr.Exists("pulasafe:inflight:delete:u1:9"))
}

func TestRedis_ExpiredHolderDoesNotReleaseNewOne(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewRedis(rdb, time.Second)
	ctx := context.Background()

	stale, err := g.Acquire(ctx, "send", "u1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := g.Acquire(ctx, "send", "u1")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists("pulasafe:inflight:send:u1"))
	fresh()
	assert.False(t, mr.Exists("pulasafe:inflight:send:u1"))
}

func TestRedis_NilClientFailsOpen(t *testing.T) {
	g := NewRedis(nil, time.Second)
	release, err := g.Acquire(context.Background(), "send", "u1")
	require.NoError(t, err)
	release()
}
