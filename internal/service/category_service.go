package service

import (
	"context"
	"log/slog"
	"strings"

	"pulasafe/internal/models"
	"pulasafe/internal/observability"
	"pulasafe/internal/repository"
)

// CategoryService serves the reference categories with a built-in fallback.
type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// ListCategories never fails: when the backend cannot be read the built-in
// set is returned with Source "fallback".
func (s *CategoryService) ListCategories(ctx context.Context, sess *models.Session) models.CategoryResult {
	ctx = asUser(ctx, sess)
	categories, err := s.categories.List(ctx)
	if err != nil {
		observability.CategoryFallbacks.Inc()
		slog.WarnContext(ctx, "using fallback categories", slog.String("error", err.Error()))
		return models.CategoryResult{Source: models.CategorySourceFallback, Categories: models.FallbackCategories()}
	}
	return models.CategoryResult{Source: models.CategorySourceRemote, Categories: categories}
}

// FilterTabs returns the feed filter bar: "all" followed by every category.
func FilterTabs(result models.CategoryResult) []models.FilterTab {
	tabs := make([]models.FilterTab, 0, len(result.Categories)+1)
	tabs = append(tabs, models.FilterTab{ID: models.AllCategories, Name: "All"})
	for _, c := range result.Categories {
		tabs = append(tabs, models.FilterTab{ID: c.Name, Name: c.Name})
	}
	return tabs
}

// FindCategory returns the category named name (case-insensitive) from result.
func FindCategory(result models.CategoryResult, name string) (*models.Category, bool) {
	name = strings.TrimSpace(name)
	for i := range result.Categories {
		if strings.EqualFold(result.Categories[i].Name, name) {
			c := result.Categories[i]
			return &c, true
		}
	}
	return nil, false
}
