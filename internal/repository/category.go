package repository

import (
	"context"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
)

// CategoryRepository reads the reference categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
}

type categoryRepository struct {
	client *backend.Client
	log    *observability.RepoLogger
}

func NewCategoryRepository(client *backend.Client) CategoryRepository {
	return &categoryRepository{client: client, log: observability.NewRepoLogger(TableCategories)}
}

// List returns every category ordered by id.
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := r.client.From(TableCategories).Select("*").Order("id", true).Execute(ctx, &categories); err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"count": len(categories)})
	return categories, nil
}
