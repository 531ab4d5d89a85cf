package server

import (
	"errors"

	"pulasafe/internal/middleware"
	"pulasafe/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten signals that a helper already wrote the response.
// Handlers return nil when they see it.
var errResponseWritten = errors.New("response already written")

// parseID extracts a positive integer route parameter. On failure it writes
// a 400 response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return int64(id), nil
}

// parseUserID extracts a UUID route parameter.
func parseUserID(c *fiber.Ctx, param string) (string, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid user ID"))
		return "", errResponseWritten
	}
	return id.String(), nil
}

// parseBody decodes the JSON body into out, writing a 400 on failure.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

func session(c *fiber.Ctx) *models.Session {
	return middleware.SessionFrom(c)
}
