package server

import (
	"pulasafe/internal/models"
	"pulasafe/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /api/auth/signin
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	sess, err := s.svc.Auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(sess)
}

// SignUp handles POST /api/auth/signup. When the backend wants the email
// confirmed first the response has no session.
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req service.SignUpInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.svc.Auth.SignUp(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":                  res.User,
		"session":               res.Session,
		"confirmation_required": res.Session == nil,
	})
}

// RecoverPassword handles POST /api/auth/recover
func (s *Server) RecoverPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.svc.Auth.ResetPassword(c.UserContext(), req.Email); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Check your email for the password reset link"})
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	sess, err := s.svc.Auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(sess)
}

// OAuthRedirect handles GET /api/auth/oauth/:provider and returns the URL
// that starts the provider's sign-in flow.
func (s *Server) OAuthRedirect(c *fiber.Ctx) error {
	url, err := s.svc.Auth.OAuthURL(c.Params("provider"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// SignOut handles POST /api/auth/signout
func (s *Server) SignOut(c *fiber.Ctx) error {
	if err := s.svc.Auth.SignOut(c.UserContext(), session(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
