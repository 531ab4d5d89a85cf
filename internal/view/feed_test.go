package view

import (
	"context"
	"testing"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = &backend.Error{Status: 503, Message: "service unavailable"}

func testSession() *models.Session {
	return &models.Session{AccessToken: "access-token", User: models.User{ID: "11111111-1111-4111-8111-111111111111"}}
}

// feedStub is a stub for FeedAccessor.
type feedStub struct {
	listFn   func(context.Context, string) ([]models.Post, error)
	createFn func(context.Context, service.CreatePostInput) (*models.Post, error)
	likeFn   func(context.Context, *models.Post) (*models.Post, error)
	deleteFn func(context.Context, *models.Post) error
}

func (s *feedStub) ListPosts(ctx context.Context, _ *models.Session, filter string) ([]models.Post, error) {
	return s.listFn(ctx, filter)
}
func (s *feedStub) CreatePost(ctx context.Context, _ *models.Session, in service.CreatePostInput) (*models.Post, error) {
	return s.createFn(ctx, in)
}
func (s *feedStub) ToggleLike(ctx context.Context, _ *models.Session, p *models.Post) (*models.Post, error) {
	return s.likeFn(ctx, p)
}
func (s *feedStub) DeletePost(ctx context.Context, _ *models.Session, p *models.Post) error {
	return s.deleteFn(ctx, p)
}

func seededPosts() []models.Post {
	return []models.Post{
		{ID: 1, Category: "Fire", LikesCount: 5},
		{ID: 2, Category: "Flooding"},
		{ID: 3, Category: "Fire", LikesCount: 1, LikedByCurrentUser: true},
	}
}

// newSeededFeed returns a feed with "all" and "fire" listings loaded from
// a backend whose rows live in the returned slice pointer.
func newSeededFeed(t *testing.T, stub *feedStub) (*Feed, *[]models.Post) {
	t.Helper()
	rows := seededPosts()
	if stub.listFn == nil {
		stub.listFn = func(_ context.Context, filter string) ([]models.Post, error) {
			var out []models.Post
			for _, p := range rows {
				if p.MatchesCategory(filter) {
					out = append(out, p)
				}
			}
			return out, nil
		}
	}
	f := NewFeed(stub, testSession)
	_, err := f.Refresh(context.Background(), "Fire")
	require.NoError(t, err)
	_, err = f.Refresh(context.Background(), "all")
	require.NoError(t, err)
	return f, &rows
}

func TestFeed_RefreshKeepsListingsPerFilter(t *testing.T) {
	f, _ := newSeededFeed(t, &feedStub{})

	assert.Len(t, f.Posts("all"), 3)
	assert.Len(t, f.Posts("fire"), 2)
	assert.Len(t, f.Posts(" FIRE "), 2)
	assert.Equal(t, "all", f.Active())
}

func TestFeed_RefreshFailureKeepsListing(t *testing.T) {
	stub := &feedStub{}
	f, _ := newSeededFeed(t, stub)
	stub.listFn = func(context.Context, string) ([]models.Post, error) { return nil, errBackendDown }

	_, err := f.Refresh(context.Background(), "all")
	assert.Error(t, err)
	assert.Len(t, f.Posts("all"), 3)
}

func TestFeed_ToggleLikeUpdatesEveryListing(t *testing.T) {
	var sent []models.Post
	stub := &feedStub{likeFn: func(_ context.Context, p *models.Post) (*models.Post, error) {
		sent = append(sent, *p)
		updated := *p
		if p.LikedByCurrentUser {
			updated.LikesCount--
		} else {
			updated.LikesCount++
		}
		updated.LikedByCurrentUser = !p.LikedByCurrentUser
		return &updated, nil
	}}
	f, _ := newSeededFeed(t, stub)

	updated, err := f.ToggleLike(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.LikesCount)

	for _, filter := range []string{"all", "fire"} {
		p := findPost(t, f.Posts(filter), 1)
		assert.Equal(t, 6, p.LikesCount, filter)
		assert.True(t, p.LikedByCurrentUser, filter)
	}

	_, err = f.ToggleLike(context.Background(), 1)
	require.NoError(t, err)
	p := findPost(t, f.Posts("fire"), 1)
	assert.Equal(t, 5, p.LikesCount)
	assert.False(t, p.LikedByCurrentUser)

	require.Len(t, sent, 2)
	assert.True(t, sent[1].LikedByCurrentUser, "second toggle starts from the updated snapshot")
}

func TestFeed_ToggleLikeFailureChangesNothing(t *testing.T) {
	stub := &feedStub{likeFn: func(context.Context, *models.Post) (*models.Post, error) {
		return nil, models.NewBackendError("Failed to update like", errBackendDown)
	}}
	f, _ := newSeededFeed(t, stub)

	_, err := f.ToggleLike(context.Background(), 1)
	assert.True(t, models.IsBackendError(err))
	p := findPost(t, f.Posts("all"), 1)
	assert.Equal(t, 5, p.LikesCount)
	assert.False(t, p.LikedByCurrentUser)
}

func TestFeed_ToggleLikeUnknownPost(t *testing.T) {
	f, _ := newSeededFeed(t, &feedStub{})
	_, err := f.ToggleLike(context.Background(), 99)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFeed_ToggleLikeWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	stub := &feedStub{likeFn: func(_ context.Context, p *models.Post) (*models.Post, error) {
		close(entered)
		<-unblock
		updated := *p
		return &updated, nil
	}}
	f, _ := newSeededFeed(t, stub)

	done := make(chan error, 1)
	go func() {
		_, err := f.ToggleLike(context.Background(), 1)
		done <- err
	}()
	<-entered

	_, err := f.ToggleLike(context.Background(), 1)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	close(unblock)
	require.NoError(t, <-done)
}

func TestFeed_DeleteRemovesFromEveryListing(t *testing.T) {
	stub := &feedStub{}
	f, rows := newSeededFeed(t, stub)
	stub.deleteFn = func(_ context.Context, p *models.Post) error {
		*rows = removeRow(*rows, p.ID)
		return nil
	}

	require.NoError(t, f.Delete(context.Background(), 3))
	assert.Len(t, f.Posts("all"), 2)
	assert.Len(t, f.Posts("fire"), 1)

	posts, err := f.Refresh(context.Background(), "all")
	require.NoError(t, err)
	for _, p := range posts {
		assert.NotEqual(t, int64(3), p.ID)
	}
}

func TestFeed_DeleteFailureKeepsPost(t *testing.T) {
	stub := &feedStub{deleteFn: func(context.Context, *models.Post) error {
		return models.NewBackendError("Failed to delete post", errBackendDown)
	}}
	f, _ := newSeededFeed(t, stub)

	err := f.Delete(context.Background(), 3)
	assert.Error(t, err)
	assert.Len(t, f.Posts("fire"), 2)
}

func TestFeed_CreateRefetchesActiveListing(t *testing.T) {
	stub := &feedStub{}
	f, rows := newSeededFeed(t, stub)
	stub.createFn = func(_ context.Context, in service.CreatePostInput) (*models.Post, error) {
		p := models.Post{ID: 4, Text: in.Text, Category: "Other"}
		*rows = append([]models.Post{p}, *rows...)
		return &p, nil
	}

	post, err := f.Create(context.Background(), service.CreatePostInput{Text: "Tree down"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), post.ID)

	all := f.Posts("all")
	require.Len(t, all, 4)
	assert.Equal(t, int64(4), all[0].ID)
}

func TestFeed_CreateReachesMatchingListings(t *testing.T) {
	tests := []struct {
		name       string
		refreshErr error
	}{
		{name: "refresh succeeds"},
		{name: "refresh fails", refreshErr: models.NewBackendError("Could not load posts. Please try again.", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &feedStub{}
			f, rows := newSeededFeed(t, stub)
			_, err := f.Refresh(context.Background(), "Flooding")
			require.NoError(t, err)
			_, err = f.Refresh(context.Background(), "all")
			require.NoError(t, err)

			stub.createFn = func(_ context.Context, in service.CreatePostInput) (*models.Post, error) {
				p := models.Post{ID: 4, Text: in.Text, Category: "Fire"}
				*rows = append([]models.Post{p}, *rows...)
				return &p, nil
			}
			if tt.refreshErr != nil {
				stub.listFn = func(context.Context, string) ([]models.Post, error) { return nil, tt.refreshErr }
			}

			_, err = f.Create(context.Background(), service.CreatePostInput{Text: "Smoke over Broadhurst"})
			require.NoError(t, err)

			all := f.Posts("all")
			require.Len(t, all, 4)
			assert.Equal(t, int64(4), all[0].ID)

			fire := f.Posts("fire")
			require.Len(t, fire, 3)
			assert.Equal(t, int64(4), fire[0].ID)

			assert.Len(t, f.Posts("flooding"), 1)
		})
	}
}

func TestFeed_CreateFailure(t *testing.T) {
	stub := &feedStub{createFn: func(context.Context, service.CreatePostInput) (*models.Post, error) {
		return nil, models.NewValidationError("Please enter some text for your post")
	}}
	f, _ := newSeededFeed(t, stub)

	_, err := f.Create(context.Background(), service.CreatePostInput{})
	assert.True(t, models.IsValidationError(err))
	assert.Len(t, f.Posts("all"), 3)
}

func findPost(t *testing.T, posts []models.Post, id int64) models.Post {
	t.Helper()
	for _, p := range posts {
		if p.ID == id {
			return p
		}
	}
	require.Failf(t, "post not found", "id %d", id)
	return models.Post{}
}

func removeRow(rows []models.Post, id int64) []models.Post {
	out := rows[:0:0]
	for _, p := range rows {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

