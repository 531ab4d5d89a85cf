package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/imaging"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
	"pulasafe/internal/repository"
	"pulasafe/internal/storage"
)

// codeUniqueViolation is the Postgres error code for a duplicate key.
const codeUniqueViolation = "23505"

// FeedService lists, creates, likes and deletes posts.
type FeedService struct {
	posts         repository.PostRepository
	photos        storage.ObjectStore
	maxPhotoBytes int64
	now           func() time.Time
}

// PhotoInput is a photo attached to a new post.
type PhotoInput struct {
	Data        []byte
	ContentType string
}

type CreatePostInput struct {
	Text     string
	Category *models.Category
	Location string
	Photo    *PhotoInput
}

func NewFeedService(posts repository.PostRepository, photos storage.ObjectStore, maxPhotoBytes int64) *FeedService {
	return &FeedService{
		posts:         posts,
		photos:        photos,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
	}
}

// ListPosts fetches the feed for filter ("all" or a category name), newest first.
func (s *FeedService) ListPosts(ctx context.Context, sess *models.Session, filter string) ([]models.Post, error) {
	ctx = asUser(ctx, sess)
	posts, err := s.posts.List(ctx, strings.TrimSpace(filter))
	if err != nil {
		slog.ErrorContext(ctx, "failed to load posts", slog.String("filter", filter), slog.String("error", err.Error()))
		return nil, models.NewBackendError("Could not load posts. Please try again.", err)
	}
	return posts, nil
}

// CreatePost publishes a post. A photo is uploaded first; if the upload
// fails the post is created without one. If the insert fails after a
// successful upload, the uploaded object is removed again.
func (s *FeedService) CreatePost(ctx context.Context, sess *models.Session, in CreatePostInput) (*models.Post, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Please enter some text for your post")
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	var photo *imaging.Photo
	if in.Photo != nil {
		var err error
		if photo, err = imaging.Normalize(in.Photo.Data, in.Photo.ContentType, s.maxPhotoBytes); err != nil {
			return nil, err
		}
	}

	ctx = asUser(ctx, sess)
	row := models.PostInsert{
		UserID:        sess.User.ID,
		Text:          text,
		Category:      models.DefaultCategoryName,
		CategoryColor: models.DefaultCategoryColor,
		Location:      strings.TrimSpace(in.Location),
	}
	if in.Category != nil {
		row.Category = in.Category.Name
		row.CategoryColor = in.Category.Color
	}
	if row.Location == "" {
		row.Location = models.DefaultLocation
	}

	var undo compensation
	if photo != nil {
		name := storage.PhotoName(s.now())
		if err := s.photos.Upload(ctx, name, imaging.ContentType, photo.Data); err != nil {
			observability.PhotoUploads.WithLabelValues("failed").Inc()
			slog.WarnContext(ctx, "photo upload failed, posting without photo", slog.String("object", name), slog.String("error", err.Error()))
		} else {
			observability.PhotoUploads.WithLabelValues("ok").Inc()
			url := s.photos.PublicURL(name)
			row.HasPhoto = true
			row.PhotoURL = &url
			undo.record("remove uploaded photo", func(ctx context.Context) error {
				return s.photos.Remove(ctx, name)
			})
		}
	}

	post, err := s.posts.Create(ctx, row)
	if err != nil {
		undo.run(ctx)
		return nil, models.NewBackendError("Failed to create post", err)
	}

	post.LikesCount = 0
	post.CommentsCount = 0
	post.LikedByCurrentUser = false
	return post, nil
}

// ToggleLike flips the like state recorded in the post snapshot. The
// returned copy carries the new count and flag; post itself is not modified.
func (s *FeedService) ToggleLike(ctx context.Context, sess *models.Session, post *models.Post) (*models.Post, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewValidationError("Post is required")
	}
	ctx = asUser(ctx, sess)
	updated := *post

	if post.LikedByCurrentUser {
		if err := s.posts.Unlike(ctx, post.ID, sess.User.ID); err != nil {
			return nil, models.NewBackendError("Failed to update like", err)
		}
		updated.LikedByCurrentUser = false
		updated.LikesCount = max(post.LikesCount-1, 0)
		return &updated, nil
	}

	if err := s.posts.Like(ctx, post.ID, sess.User.ID); err != nil {
		var be *backend.Error
		if !errors.As(err, &be) || be.Code != codeUniqueViolation {
			return nil, models.NewBackendError("Failed to update like", err)
		}
		// Already liked elsewhere; the snapshot count includes it.
		updated.LikedByCurrentUser = true
		return &updated, nil
	}
	updated.LikedByCurrentUser = true
	updated.LikesCount = post.LikesCount + 1
	return &updated, nil
}

// ToggleLikeByID reads the current snapshot and toggles it.
func (s *FeedService) ToggleLikeByID(ctx context.Context, sess *models.Session, id int64) (*models.Post, error) {
	post, err := s.getPost(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.ToggleLike(ctx, sess, post)
}

// DeletePost removes the post's photo (best effort) and then the post.
func (s *FeedService) DeletePost(ctx context.Context, sess *models.Session, post *models.Post) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if post == nil {
		return models.NewValidationError("Post is required")
	}
	ctx = asUser(ctx, sess)

	if post.HasPhoto && post.PhotoURL != nil {
		if name := storage.ObjectNameFromURL(*post.PhotoURL); name != "" {
			if err := s.photos.Remove(ctx, name); err != nil {
				slog.WarnContext(ctx, "failed to remove post photo", slog.Int64("post_id", post.ID), slog.String("object", name), slog.String("error", err.Error()))
			}
		}
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return models.NewBackendError("Failed to delete post", err)
	}
	return nil
}

// DeletePostByID reads the post and deletes it.
func (s *FeedService) DeletePostByID(ctx context.Context, sess *models.Session, id int64) error {
	post, err := s.getPost(ctx, sess, id)
	if err != nil {
		return err
	}
	return s.DeletePost(ctx, sess, post)
}

func (s *FeedService) getPost(ctx context.Context, sess *models.Session, id int64) (*models.Post, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(asUser(ctx, sess), id)
	if err != nil {
		if backend.IsNoRows(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewBackendError("Could not load post", err)
	}
	return post, nil
}
