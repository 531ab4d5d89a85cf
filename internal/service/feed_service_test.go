package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func newFeed(repo *postRepoStub, store *storeStub) *FeedService {
	s := NewFeedService(repo, store, 10<<20)
	s.now = func() time.Time { return time.UnixMilli(1718000000123) }
	return s
}

func TestFeedService_ListPosts(t *testing.T) {
	stored := []models.Post{
		{ID: 1, Category: "Fire"},
		{ID: 2, Category: "Flooding"},
		{ID: 3, Category: "Fire"},
	}
	repo := noopPostRepo()
	var gotFilter string
	var gotToken string
	repo.listFn = func(ctx context.Context, category string) ([]models.Post, error) {
		gotFilter = category
		gotToken = backend.AccessToken(ctx)
		var out []models.Post
		for _, p := range stored {
			if p.MatchesCategory(category) {
				out = append(out, p)
			}
		}
		return out, nil
	}

	posts, err := newFeed(repo, &storeStub{}).ListPosts(context.Background(), testSession(), "fire")
	require.NoError(t, err)
	assert.Equal(t, "fire", gotFilter)
	assert.Equal(t, "access-token", gotToken)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, int64(3), posts[1].ID)
}

func TestFeedService_ListPostsBackendError(t *testing.T) {
	repo := noopPostRepo()
	repo.listFn = func(context.Context, string) ([]models.Post, error) { return nil, errBackendDown }

	posts, err := newFeed(repo, &storeStub{}).ListPosts(context.Background(), nil, "all")
	assert.Nil(t, posts)
	assertBackendError(t, err)
	assert.True(t, errors.Is(err, errBackendDown))
}

func TestFeedService_CreatePost_BlankTextMakesNoCall(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(context.Context, models.PostInsert) (*models.Post, error) {
		t.Fatal("create must not be called")
		return nil, nil
	}
	store := &storeStub{}

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := newFeed(repo, store).CreatePost(context.Background(), testSession(), CreatePostInput{
			Text:  text,
			Photo: &PhotoInput{Data: tinyPNG(t)},
		})
		assertValidationError(t, err)
	}
	assert.Empty(t, store.uploaded)
}

func TestFeedService_CreatePost_NoPhoto(t *testing.T) {
	var inserted models.PostInsert
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, in models.PostInsert) (*models.Post, error) {
		inserted = in
		return &models.Post{ID: 9, Text: in.Text, Category: in.Category, CategoryColor: in.CategoryColor,
			Location: in.Location, HasPhoto: in.HasPhoto, PhotoURL: in.PhotoURL, LikesCount: 3}, nil
	}

	post, err := newFeed(repo, &storeStub{}).CreatePost(context.Background(), testSession(), CreatePostInput{
		Text:     "Flood on Main St",
		Category: &models.Category{ID: 1, Name: "Flooding", Color: "#4285F4"},
		Location: "Gaborone",
	})
	require.NoError(t, err)

	assert.False(t, post.HasPhoto)
	assert.Nil(t, post.PhotoURL)
	assert.Equal(t, 0, post.LikesCount)
	assert.Equal(t, 0, post.CommentsCount)
	assert.False(t, post.LikedByCurrentUser)
	assert.True(t, post.PhotoConsistent())
	assert.Equal(t, "Flooding", inserted.Category)
	assert.Equal(t, "#4285F4", inserted.CategoryColor)
	assert.Equal(t, "Gaborone", inserted.Location)
	assert.Equal(t, testSession().User.ID, inserted.UserID)
}

func TestFeedService_CreatePost_Defaults(t *testing.T) {
	var inserted models.PostInsert
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, in models.PostInsert) (*models.Post, error) {
		inserted = in
		return &models.Post{ID: 1}, nil
	}

	_, err := newFeed(repo, &storeStub{}).CreatePost(context.Background(), testSession(), CreatePostInput{Text: "Tree down"})
	require.NoError(t, err)
	assert.Equal(t, "Other", inserted.Category)
	assert.Equal(t, "#8e44ad", inserted.CategoryColor)
	assert.Equal(t, "Unknown Location", inserted.Location)
}

func TestFeedService_CreatePost_WithPhoto(t *testing.T) {
	store := &storeStub{}
	post, err := newFeed(noopPostRepo(), store).CreatePost(context.Background(), testSession(), CreatePostInput{
		Text:  "Smoke over Mogoditshane",
		Photo: &PhotoInput{Data: tinyPNG(t), ContentType: "image/png"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"post_1718000000123.jpg"}, store.uploaded)
	require.NotNil(t, post.PhotoURL)
	assert.True(t, post.HasPhoto)
	assert.True(t, strings.HasSuffix(*post.PhotoURL, "/post_images/post_1718000000123.jpg"))
	assert.True(t, post.PhotoConsistent())
}

func TestFeedService_CreatePost_UploadFailureStillPosts(t *testing.T) {
	store := &storeStub{uploadFn: func(context.Context, string, string, []byte) error { return errBackendDown }}

	post, err := newFeed(noopPostRepo(), store).CreatePost(context.Background(), testSession(), CreatePostInput{
		Text:  "Power out in Block 8",
		Photo: &PhotoInput{Data: tinyPNG(t)},
	})
	require.NoError(t, err)
	assert.False(t, post.HasPhoto)
	assert.Nil(t, post.PhotoURL)
	assert.Empty(t, store.removed)
}

func TestFeedService_CreatePost_InsertFailureRemovesUpload(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(context.Context, models.PostInsert) (*models.Post, error) { return nil, errBackendDown }
	store := &storeStub{}

	_, err := newFeed(repo, store).CreatePost(context.Background(), testSession(), CreatePostInput{
		Text:  "Road washed away",
		Photo: &PhotoInput{Data: tinyPNG(t)},
	})
	assertBackendError(t, err)
	assert.Equal(t, []string{"post_1718000000123.jpg"}, store.removed)
}

func TestFeedService_CreatePost_InvalidPhoto(t *testing.T) {
	store := &storeStub{}
	_, err := newFeed(noopPostRepo(), store).CreatePost(context.Background(), testSession(), CreatePostInput{
		Text:  "hello",
		Photo: &PhotoInput{Data: []byte("not an image at all")},
	})
	assertValidationError(t, err)
	assert.Empty(t, store.uploaded)
}

func TestFeedService_CreatePost_RequiresSession(t *testing.T) {
	_, err := newFeed(noopPostRepo(), &storeStub{}).CreatePost(context.Background(), nil, CreatePostInput{Text: "hi"})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestFeedService_ToggleLikeTwiceRestores(t *testing.T) {
	var calls []string
	repo := noopPostRepo()
	repo.likeFn = func(_ context.Context, id int64, _ string) error {
		calls = append(calls, "like")
		return nil
	}
	repo.unlikeFn = func(_ context.Context, id int64, _ string) error {
		calls = append(calls, "unlike")
		return nil
	}
	svc := newFeed(repo, &storeStub{})
	ctx := context.Background()
	start := &models.Post{ID: 42, LikesCount: 5, LikedByCurrentUser: false}

	first, err := svc.ToggleLike(ctx, testSession(), start)
	require.NoError(t, err)
	assert.True(t, first.LikedByCurrentUser)
	assert.Equal(t, 6, first.LikesCount)

	second, err := svc.ToggleLike(ctx, testSession(), first)
	require.NoError(t, err)
	assert.False(t, second.LikedByCurrentUser)
	assert.Equal(t, 5, second.LikesCount)

	assert.Equal(t, []string{"like", "unlike"}, calls)
	assert.Equal(t, 5, start.LikesCount, "snapshot must not be modified")
}

func TestFeedService_ToggleLikeFailureLeavesSnapshot(t *testing.T) {
	repo := noopPostRepo()
	repo.likeFn = func(context.Context, int64, string) error { return errBackendDown }

	post := &models.Post{ID: 42, LikesCount: 5}
	updated, err := newFeed(repo, &storeStub{}).ToggleLike(context.Background(), testSession(), post)
	assertBackendError(t, err)
	assert.Nil(t, updated)
	assert.Equal(t, 5, post.LikesCount)
	assert.False(t, post.LikedByCurrentUser)
}

func TestFeedService_ToggleLikeDuplicateRow(t *testing.T) {
	repo := noopPostRepo()
	repo.likeFn = func(context.Context, int64, string) error {
		return &backend.Error{Status: 409, Code: "23505", Message: "duplicate key value"}
	}

	updated, err := newFeed(repo, &storeStub{}).ToggleLike(context.Background(), testSession(), &models.Post{ID: 1, LikesCount: 2})
	require.NoError(t, err)
	assert.True(t, updated.LikedByCurrentUser)
	assert.Equal(t, 2, updated.LikesCount)
}

func TestFeedService_ToggleLikeByID(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id int64) (*models.Post, error) {
		return &models.Post{ID: id, LikesCount: 1, LikedByCurrentUser: true}, nil
	}

	updated, err := newFeed(repo, &storeStub{}).ToggleLikeByID(context.Background(), testSession(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.LikesCount)
	assert.False(t, updated.LikedByCurrentUser)
}

func TestFeedService_DeletePost_PhotoRemovalFailureStillDeletes(t *testing.T) {
	photoURL := "https://demo.supabase.co/storage/v1/object/public/post_images/post_1.jpg"
	posts := map[int64]models.Post{
		1: {ID: 1, HasPhoto: true, PhotoURL: &photoURL},
		2: {ID: 2},
	}
	repo := noopPostRepo()
	repo.deleteFn = func(_ context.Context, id int64) error {
		delete(posts, id)
		return nil
	}
	repo.listFn = func(context.Context, string) ([]models.Post, error) {
		var out []models.Post
		for _, p := range posts {
			out = append(out, p)
		}
		return out, nil
	}
	store := &storeStub{removeFn: func(context.Context, ...string) error { return errBackendDown }}
	svc := newFeed(repo, store)
	ctx := context.Background()

	target := posts[1]
	require.NoError(t, svc.DeletePost(ctx, testSession(), &target))

	assert.Equal(t, []string{"post_1.jpg"}, store.removed)
	remaining, err := svc.ListPosts(ctx, testSession(), "all")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)
}

func TestFeedService_DeletePostByID(t *testing.T) {
	tests := []struct {
		name     string
		getErr   error
		wantCode string
	}{
		{"not found", &backend.Error{Status: 406, Code: "PGRST116"}, models.CodeNotFound},
		{"backend down", errBackendDown, models.CodeBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPostRepo()
			repo.getByIDFn = func(context.Context, int64) (*models.Post, error) { return nil, tt.getErr }
			repo.deleteFn = func(context.Context, int64) error {
				t.Fatal("delete must not be called")
				return nil
			}

			err := newFeed(repo, &storeStub{}).DeletePostByID(context.Background(), testSession(), 3)
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestFeedService_DeletePostFailure(t *testing.T) {
	repo := noopPostRepo()
	repo.deleteFn = func(context.Context, int64) error { return errBackendDown }
	store := &storeStub{}

	err := newFeed(repo, store).DeletePost(context.Background(), testSession(), &models.Post{ID: 5})
	assertBackendError(t, err)
	assert.Empty(t, store.removed)
}
