// Package view keeps client-side projections of backend data: what a
// screen shows between fetches. State changes only after the backend call
// they depend on succeeds.
package view

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"pulasafe/internal/inflight"
	"pulasafe/internal/models"
	"pulasafe/internal/service"
)

// FeedAccessor is the subset of service.FeedService a Feed drives.
type FeedAccessor interface {
	ListPosts(ctx context.Context, sess *models.Session, filter string) ([]models.Post, error)
	CreatePost(ctx context.Context, sess *models.Session, in service.CreatePostInput) (*models.Post, error)
	ToggleLike(ctx context.Context, sess *models.Session, post *models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, sess *models.Session, post *models.Post) error
}

// Feed holds post listings keyed by category filter.
type Feed struct {
	posts   FeedAccessor
	session func() *models.Session
	busy    *inflight.Local

	mu       sync.Mutex
	active   string
	listings map[string][]models.Post
}

// NewFeed builds an empty feed. session is consulted on every action.
func NewFeed(posts FeedAccessor, session func() *models.Session) *Feed {
	return &Feed{
		posts:    posts,
		session:  session,
		busy:     inflight.NewLocal(),
		active:   models.AllCategories,
		listings: make(map[string][]models.Post),
	}
}

func listingKey(filter string) string {
	filter = strings.TrimSpace(filter)
	if models.IsAllCategories(filter) {
		return models.AllCategories
	}
	return strings.ToLower(filter)
}

// Refresh refetches the listing for filter and makes it the active one.
func (f *Feed) Refresh(ctx context.Context, filter string) ([]models.Post, error) {
	key := listingKey(filter)
	release, err := f.busy.Acquire(ctx, "refresh", key)
	if err != nil {
		return nil, err
	}
	defer release()

	posts, err := f.posts.ListPosts(ctx, f.session(), filter)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = key
	f.listings[key] = posts
	return slices.Clone(posts), nil
}

// Posts returns the cached listing for filter.
func (f *Feed) Posts(filter string) []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.listings[listingKey(filter)])
}

// Active returns the filter of the last successful refresh.
func (f *Feed) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Create publishes a post and refetches the active listing. Other cached
// listings the post belongs in get it prepended.
func (f *Feed) Create(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	release, err := f.busy.Acquire(ctx, "create_post", "")
	if err != nil {
		return nil, err
	}
	defer release()

	post, err := f.posts.CreatePost(ctx, f.session(), in)
	if err != nil {
		return nil, err
	}
	if _, err := f.Refresh(ctx, f.Active()); err != nil {
		slog.WarnContext(ctx, "post created but feed refresh failed", slog.Int64("post_id", post.ID), slog.String("error", err.Error()))
	}
	f.prepend(*post)
	return post, nil
}

func (f *Feed) prepend(post models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, posts := range f.listings {
		if !post.MatchesCategory(key) || slices.ContainsFunc(posts, func(p models.Post) bool { return p.ID == post.ID }) {
			continue
		}
		f.listings[key] = append([]models.Post{post}, posts...)
	}
}

// ToggleLike flips the like on post id and applies the result to every
// listing holding it.
func (f *Feed) ToggleLike(ctx context.Context, id int64) (*models.Post, error) {
	release, err := f.busy.Acquire(ctx, "like", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot, ok := f.find(id)
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	updated, err := f.posts.ToggleLike(ctx, f.session(), &snapshot)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, posts := range f.listings {
		for i := range posts {
			if posts[i].ID == id {
				posts[i].LikesCount = updated.LikesCount
				posts[i].LikedByCurrentUser = updated.LikedByCurrentUser
			}
		}
	}
	return updated, nil
}

// Delete removes post id on the backend and from every listing.
func (f *Feed) Delete(ctx context.Context, id int64) error {
	release, err := f.busy.Acquire(ctx, "delete", strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	defer release()

	snapshot, ok := f.find(id)
	if !ok {
		return models.NewNotFoundError("Post", id)
	}
	if err := f.posts.DeletePost(ctx, f.session(), &snapshot); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for key, posts := range f.listings {
		f.listings[key] = slices.DeleteFunc(posts, func(p models.Post) bool { return p.ID == id })
	}
	return nil
}

func (f *Feed) find(id int64) (models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, posts := range f.listings {
		for _, p := range posts {
			if p.ID == id {
				return p, true
			}
		}
	}
	return models.Post{}, false
}
