package service

import (
	"context"
	"strings"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/repository"
)

// ProfileService reads and renames the signed-in user's profile.
type ProfileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) Get(ctx context.Context, sess *models.Session) (*models.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	p, err := s.profiles.Get(asUser(ctx, sess), sess.User.ID)
	if err != nil {
		if backend.IsNoRows(err) {
			return nil, models.NewNotFoundError("Profile", sess.User.ID)
		}
		return nil, models.NewBackendError("Could not load profile", err)
	}
	return p, nil
}

// Rename sets the profile's full name. A blank name keeps the current one.
func (s *ProfileService) Rename(ctx context.Context, sess *models.Session, fullName string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return s.Get(ctx, sess)
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	p, err := s.profiles.UpdateName(asUser(ctx, sess), sess.User.ID, fullName)
	if err != nil {
		return nil, models.NewBackendError("Failed to update profile", err)
	}
	return p, nil
}
