// Package seed fills a development database with the reference categories and
// optional demo incident reports.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"pulasafe/internal/models"
	"pulasafe/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configures a seeding run.
type Options struct {
	// Posts is the number of demo posts to create. Zero seeds categories only.
	Posts int
	// MaxLikes caps the demo likes per post.
	MaxLikes int
	// Clean removes existing posts, likes and messages first.
	Clean bool
	// Seed makes the demo content reproducible when non-zero.
	Seed int64
}

// Seeder writes seed data through gorm.
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // demo data
	return &Seeder{db: db, rand: rand.New(rand.NewSource(seed))}
}

// Run applies opts: clean, categories, then demo posts.
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	s := NewSeeder(db, opts.Seed)

	if opts.Clean {
		if err := s.Clear(ctx); err != nil {
			return err
		}
	}

	categories, err := s.Categories(ctx)
	if err != nil {
		return err
	}

	if opts.Posts > 0 {
		if _, err := s.DemoPosts(ctx, categories, opts.Posts, opts.MaxLikes); err != nil {
			return err
		}
	}
	return nil
}

// Categories upserts the reference categories by name. Running it twice
// leaves exactly one row per name with the reference colour.
func (s *Seeder) Categories(ctx context.Context) ([]models.Category, error) {
	done := observability.TrackQuery("seed", "categories")
	defer done()

	out := make([]models.Category, 0, len(models.FallbackCategories()))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range models.FallbackCategories() {
			category := models.Category{Name: ref.Name, Color: ref.Color}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"color"}),
			}).Create(&category).Error; err != nil {
				return fmt.Errorf("failed to upsert category %s: %w", ref.Name, err)
			}
			var stored models.Category
			if err := tx.Where("name = ?", ref.Name).First(&stored).Error; err != nil {
				return err
			}
			out = append(out, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.GlobalLogger.InfoContext(ctx, "categories seeded", slog.Int("count", len(out)))
	return out, nil
}

// DemoPosts creates n posts spread over the last month, each with up to
// maxLikes likes from random viewers. Roughly a third carry a photo.
func (s *Seeder) DemoPosts(ctx context.Context, categories []models.Category, n, maxLikes int) ([]models.Post, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories to attach demo posts to")
	}
	done := observability.TrackQuery("seed", "posts")
	defer done()

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, s.buildPost(categories))
	}

	db := s.db.WithContext(ctx)
	if err := db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, fmt.Errorf("failed to create demo posts: %w", err)
	}

	var likes []models.PostLike
	for _, p := range posts {
		if maxLikes <= 0 {
			break
		}
		for j := s.rand.Intn(maxLikes + 1); j > 0; j-- {
			likes = append(likes, models.PostLike{PostID: p.ID, UserID: uuid.NewString()})
		}
	}
	if len(likes) > 0 {
		if err := db.CreateInBatches(&likes, 500).Error; err != nil {
			return nil, fmt.Errorf("failed to create demo likes: %w", err)
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "demo posts seeded",
		slog.Int("posts", len(posts)),
		slog.Int("likes", len(likes)),
	)
	return posts, nil
}

func (s *Seeder) buildPost(categories []models.Category) models.Post {
	category := categories[s.rand.Intn(len(categories))]
	age := time.Duration(s.rand.Intn(30*24*60)) * time.Minute

	post := models.Post{
		Text:          gofakeit.Sentence(gofakeit.Number(6, 18)),
		Category:      category.Name,
		CategoryColor: category.Color,
		Location:      gofakeit.Street() + ", " + gofakeit.City(),
		CreatedAt:     time.Now().Add(-age),
	}
	if s.rand.Intn(3) == 0 {
		url := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
		post.PhotoURL = &url
		post.HasPhoto = true
	}
	return post
}

// Clear removes demo content. Categories and profiles are kept.
func (s *Seeder) Clear(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{&models.Message{}, &models.PostLike{}, &models.Post{}} {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to clear seed data: %w", err)
		}
	}
	observability.GlobalLogger.InfoContext(ctx, "seed data cleared")
	return nil
}
