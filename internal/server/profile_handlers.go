package server

import (
	"pulasafe/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	p, err := s.svc.Profile.Get(c.UserContext(), session(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(p)
}

// UpdateProfile handles PATCH /api/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	p, err := s.svc.Profile.Rename(c.UserContext(), session(c), req.FullName)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(p)
}
