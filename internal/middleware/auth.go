// Package middleware provides the gateway's Fiber middleware.
package middleware

import (
	"strings"
	"time"

	"pulasafe/internal/config"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// accessClaims are the claims of an access token issued by the backend's auth service.
type accessClaims struct {
	Email        string              `json:"email"`
	Role         string              `json:"role"`
	UserMetadata models.UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}

// AuthRequired verifies the bearer token and stores the caller's session in
// c.Locals(LocalSession). Handlers pass that session to the services.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}
	sess, msg := verify(authHeader)
	if sess == nil {
		return unauthorized(c, msg)
	}
	storeSession(c, sess)
	return c.Next()
}

// OptionalAuth lets anonymous callers through. A request that does carry an
// Authorization header must present a valid token, and its session is stored
// the same way AuthRequired stores it.
func OptionalAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}
	sess, msg := verify(authHeader)
	if sess == nil {
		return unauthorized(c, msg)
	}
	storeSession(c, sess)
	return c.Next()
}

// verify parses the Authorization header value. On failure it returns nil and
// the message to send back.
func verify(authHeader string) (*models.Session, string) {
	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		return nil, "Invalid authorization header format"
	}

	var secret string
	if cfg != nil {
		secret = cfg.SupabaseJWTSecret
	}
	if secret == "" {
		return nil, "Token verification is not configured"
	}

	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, "Invalid or expired token"
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, "Invalid user ID in token"
	}

	sess := &models.Session{
		AccessToken: tokenString,
		TokenType:   "bearer",
		User: models.User{
			ID:       userID.String(),
			Email:    claims.Email,
			Metadata: claims.UserMetadata,
		},
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time.In(time.UTC)
	}
	return sess, ""
}

func storeSession(c *fiber.Ctx, sess *models.Session) {
	c.Locals(LocalUserID, sess.User.ID)
	c.Locals(LocalSession, sess)
	c.SetUserContext(observability.WithUserID(c.UserContext(), sess.User.ID))
}

// SessionFrom returns the session AuthRequired or OptionalAuth stored, or nil.
func SessionFrom(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals(LocalSession).(*models.Session)
	return sess
}
