package repository

import (
	"context"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
)

// ProfileRepository reads and updates user profiles.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	UpdateName(ctx context.Context, userID, fullName string) (*models.Profile, error)
}

type profileRepository struct {
	client *backend.Client
	log    *observability.RepoLogger
}

func NewProfileRepository(client *backend.Client) ProfileRepository {
	return &profileRepository{client: client, log: observability.NewRepoLogger(TableProfiles)}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.client.From(TableProfiles).
		Select("id,full_name,email,phone_number,avatar_url").
		Eq("id", userID).
		Single().
		Execute(ctx, &p)
	if err != nil {
		if !backend.IsNoRows(err) {
			r.log.LogError(ctx, err, "get")
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) UpdateName(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	var p models.Profile
	err := r.client.From(TableProfiles).
		Eq("id", userID).
		Single().
		Update(ctx, map[string]string{"full_name": fullName}, &p)
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return nil, err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"profile_id": userID})
	return &p, nil
}
