package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulasafe/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tests := []struct {
		name    string
		env     string
		rdb     *redis.Client
		calls   int
		allowed bool
		wantErr bool
	}{
		{"test environment bypass", "test", nil, 5, true, false},
		{"development environment bypass", "development", nil, 5, true, false},
		{"nil redis in production", "production", nil, 1, false, true},
		{"under limit", "production", rdb, 2, true, false},
		{"over limit", "production", rdb, 3, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			mr.FlushAll()

			var allowed bool
			var err error
			for i := 0; i < tt.calls; i++ {
				allowed, err = CheckRateLimit(context.Background(), tt.rdb, "signin", "ip:1.2.3.4", 2, time.Minute)
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestCheckRateLimit_WindowExpires(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := CheckRateLimit(ctx, rdb, "signin", "ip:1", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i == 0, ok)
	}
	assert.Equal(t, time.Minute, mr.TTL(cache.RateLimitKey("signin", "ip:1")))

	mr.FastForward(time.Minute + time.Second)
	ok, err := CheckRateLimit(ctx, rdb, "signin", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitWithPolicy(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	app.Post("/signin", RateLimit(rdb, 1, time.Minute, "auth"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/closed", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/open", RateLimitWithPolicy(nil, 1, time.Minute, FailOpen), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	do := func(path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, do("/signin"))
	assert.Equal(t, http.StatusTooManyRequests, do("/signin"))
	assert.Equal(t, http.StatusServiceUnavailable, do("/closed"))
	assert.Equal(t, http.StatusOK, do("/open"))
}
