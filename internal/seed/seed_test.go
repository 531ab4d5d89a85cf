package seed

import (
	"context"
	"testing"

	"pulasafe/internal/database"
	"pulasafe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	db, err := database.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func TestCategories_Idempotent(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db, 1)
	ctx := context.Background()

	first, err := s.Categories(ctx)
	require.NoError(t, err)

	// a drifted colour is restored
	require.NoError(t, db.Model(&models.Category{}).Where("name = ?", "Fire").Update("color", "#000000").Error)

	second, err := s.Categories(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)

	require.Len(t, second, 5)
	for i, ref := range models.FallbackCategories() {
		assert.Equal(t, ref.Name, second[i].Name)
		assert.Equal(t, ref.Color, second[i].Color)
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestDemoPosts(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db, 42)
	ctx := context.Background()

	categories, err := s.Categories(ctx)
	require.NoError(t, err)

	posts, err := s.DemoPosts(ctx, categories, 12, 3)
	require.NoError(t, err)
	require.Len(t, posts, 12)

	names := map[string]string{}
	for _, c := range categories {
		names[c.Name] = c.Color
	}
	for _, p := range posts {
		assert.NotZero(t, p.ID)
		assert.NotEmpty(t, p.Text)
		assert.Equal(t, names[p.Category], p.CategoryColor)
		assert.True(t, p.PhotoConsistent())
	}

	var likes int64
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.LessOrEqual(t, likes, int64(12*3))
}

func TestDemoPosts_NoCategories(t *testing.T) {
	db := setupDB(t)
	_, err := NewSeeder(db, 1).DemoPosts(context.Background(), nil, 3, 0)
	assert.Error(t, err)
}

func TestRun_CleanKeepsCategories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, db, Options{Posts: 5, MaxLikes: 2, Seed: 7}))
	require.NoError(t, Run(ctx, db, Options{Clean: true, Seed: 8}))

	var posts, likes, categories int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	assert.Zero(t, posts)
	assert.Zero(t, likes)
	assert.EqualValues(t, 5, categories)
}
