package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/validation"
)

// OAuth providers offered on the sign-in screen.
var OAuthProviders = []string{"google", "apple", "facebook"}

// AuthBackend is the part of the backend auth API the service needs.
type AuthBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, metadata models.UserMetadata) (*backend.SignUpResult, error)
	AuthorizeURL(provider, redirectTo string) string
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// AuthService validates credentials locally and forwards them to the backend.
type AuthService struct {
	auth          AuthBackend
	resetRedirect string
	oauthRedirect string
}

func NewAuthService(auth AuthBackend, resetRedirect, oauthRedirect string) *AuthService {
	return &AuthService{auth: auth, resetRedirect: resetRedirect, oauthRedirect: oauthRedirect}
}

type signInForm struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// SignIn signs in with email and password.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	form := signInForm{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Struct(form); err != nil {
		return nil, models.NewValidationError("Please enter both email and password")
	}
	sess, err := s.auth.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		return nil, authError("Error logging in", err)
	}
	return sess, nil
}

// SignUpInput is the registration form.
type SignUpInput struct {
	FullName        string `json:"full_name" validate:"notblank"`
	Email           string `json:"email" validate:"notblank,loose_email"`
	PhoneNumber     string `json:"phone_number" validate:"notblank"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// SignUp registers a user. The returned session is nil when the backend
// wants the email confirmed first.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*backend.SignUpResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := validation.Struct(in); err != nil {
		switch {
		case validation.HasTag(err, "notblank") || validation.HasTag(err, "required"):
			return nil, models.NewValidationError("Please fill in all fields")
		case validation.HasTag(err, "eqfield"):
			return nil, models.NewValidationError("Passwords do not match")
		default:
			return nil, models.NewValidationError("Please enter a valid email address")
		}
	}

	res, err := s.auth.SignUp(ctx, in.Email, in.Password, models.UserMetadata{
		FullName:    in.FullName,
		PhoneNumber: in.PhoneNumber,
	})
	if err != nil {
		return nil, authError("Error signing up", err)
	}
	return res, nil
}

// OAuthURL returns the URL that starts sign-in with provider.
func (s *AuthService) OAuthURL(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	for _, p := range OAuthProviders {
		if p == provider {
			return s.auth.AuthorizeURL(provider, s.oauthRedirect), nil
		}
	}
	return "", models.NewValidationError("Unsupported sign-in provider")
}

// ResetPassword sends a reset link that opens the app's reset screen.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.NewValidationError("Please enter your email address")
	}
	if err := s.auth.ResetPasswordForEmail(ctx, email, s.resetRedirect); err != nil {
		return authError("Error resetting password", err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, models.NewValidationError("Refresh token is required")
	}
	sess, err := s.auth.RefreshSession(ctx, refreshToken)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return nil, models.NewUnauthorizedError("Session expired. Please sign in again.")
		}
		return nil, authError("Could not refresh session", err)
	}
	return sess, nil
}

// SignOut revokes sess on the backend.
func (s *AuthService) SignOut(ctx context.Context, sess *models.Session) error {
	if err := s.auth.SignOut(asUser(ctx, sess)); err != nil {
		slog.WarnContext(ctx, "backend sign-out failed", slog.String("error", err.Error()))
		return models.NewBackendError("Sign-out could not reach the server", err)
	}
	return nil
}

// authError keeps the backend's message, which is written for end users.
func authError(title string, err error) error {
	var be *backend.Error
	if errors.As(err, &be) && be.Message != "" && be.Status >= 400 && be.Status < 500 {
		return models.NewBackendError(title+": "+be.Message, err)
	}
	return models.NewBackendError(title, err)
}
