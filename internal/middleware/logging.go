package middleware

import (
	"log/slog"
	"time"

	"pulasafe/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Locals keys shared by the middleware chain and handlers.
const (
	LocalRequestID = "requestid"
	LocalUserID    = "userID"
	LocalTraceID   = "traceID"
	LocalSession   = "session"
)

// ContextMiddleware copies the request, user and trace IDs from Fiber locals
// into the request context so the context-aware logger can pick them up.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
			ctx = observability.WithRequestID(ctx, rid)
		}
		// user_id is normally added later by AuthRequired.
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			ctx = observability.WithUserID(ctx, uid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok && tid != "" {
			ctx = observability.WithTraceID(ctx, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get("User-Agent")),
		}

		logger := observability.GlobalLogger
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
