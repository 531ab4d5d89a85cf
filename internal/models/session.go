package models

import "time"

// UserMetadata is the profile metadata stored with the auth user.
type UserMetadata struct {
	FullName    string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
}

// User is the authenticated identity.
type User struct {
	ID       string       `json:"id" yaml:"id"`
	Email    string       `json:"email,omitempty" yaml:"email,omitempty"`
	Metadata UserMetadata `json:"user_metadata" yaml:"user_metadata"`
}

// Session is the token pair and identity of a signed-in user.
type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         User      `json:"user" yaml:"user"`
}

// UserID returns the session's user ID, or "" for a nil session.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Token returns the access token, or "" for a nil session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}

// Expired reports whether the access token expires within leeway of now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}
