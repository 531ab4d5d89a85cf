// Package repository provides data access over the hosted backend's table API.
package repository

import (
	"context"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
)

// Table and view names.
const (
	TablePosts      = "posts"
	TablePostLikes  = "post_likes"
	ViewFeed        = "posts_with_comment_counts"
	TableCategories = "categories"
	TableMessages   = "messages"
	TableProfiles   = "profiles"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, category string) ([]models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, in models.PostInsert) (*models.Post, error)
	Delete(ctx context.Context, id int64) error
	Like(ctx context.Context, postID int64, userID string) error
	Unlike(ctx context.Context, postID int64, userID string) error
}

type postRepository struct {
	client *backend.Client
	log    *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(client *backend.Client) PostRepository {
	return &postRepository{client: client, log: observability.NewRepoLogger(TablePosts)}
}

// List reads the feed view newest first. An empty or "all" category disables filtering.
func (r *postRepository) List(ctx context.Context, category string) ([]models.Post, error) {
	q := r.client.From(ViewFeed).Select("*")
	if !models.IsAllCategories(category) {
		q = q.ILike("category", backend.EscapeLike(category))
	}
	posts := []models.Post{}
	if err := q.Order("created_at", false).Execute(ctx, &posts); err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"category": category, "count": len(posts)})
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.client.From(ViewFeed).Select("*").Eq("id", id).Single().Execute(ctx, &post); err != nil {
		if !backend.IsNoRows(err) {
			r.log.LogError(ctx, err, "get")
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, in models.PostInsert) (*models.Post, error) {
	var post models.Post
	if err := r.client.From(TablePosts).Single().Insert(ctx, in, &post); err != nil {
		r.log.LogError(ctx, err, "create")
		return nil, err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "has_photo": post.HasPhoto})
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	if err := r.client.From(TablePosts).Eq("id", id).Delete(ctx); err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}

func (r *postRepository) Like(ctx context.Context, postID int64, userID string) error {
	if err := r.client.From(TablePostLikes).Insert(ctx, map[string]any{"post_id": postID, "user_id": userID}, nil); err != nil {
		r.log.LogError(ctx, err, "like")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": postID, "like": true})
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, postID int64, userID string) error {
	if err := r.client.From(TablePostLikes).Eq("post_id", postID).Eq("user_id", userID).Delete(ctx); err != nil {
		r.log.LogError(ctx, err, "unlike")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": postID, "like": true})
	return nil
}
