package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"pulasafe/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextMiddlewareAndStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := observability.GlobalLogger
	observability.GlobalLogger = observability.NewLogger(&buf, true)
	t.Cleanup(func() { observability.GlobalLogger = prev })

	app := fiber.New()
	app.Use(requestid.New(), ContextMiddleware(), StructuredLogger())
	app.Get("/ping", func(c *fiber.Ctx) error {
		rid, _ := c.UserContext().Value(observability.RequestIDKey).(string)
		return c.SendString(rid)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := buf.String()
	assert.Contains(t, out, `"msg":"request processed"`)
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"path":"/ping"`)
}
