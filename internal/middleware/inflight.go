package middleware

import (
	"pulasafe/internal/inflight"
	"pulasafe/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Inflight rejects a request with 409 while the same caller already has
// action running on the same target. The target is the route's param (for
// example ":id"), or the route itself when param is empty.
func Inflight(guard inflight.Guard, action, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := c.IP()
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			subject = uid
		}
		if param != "" {
			subject += ":" + c.Params(param)
		}

		release, err := guard.Acquire(c.UserContext(), action, subject)
		if err != nil {
			return models.Respond(c, err)
		}
		defer release()

		return c.Next()
	}
}
