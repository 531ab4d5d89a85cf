package service

import (
	"context"
	"errors"
	"testing"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = &backend.Error{Status: 503, Message: "service unavailable"}

func testSession() *models.Session {
	return &models.Session{
		AccessToken: "access-token",
		User:        models.User{ID: "11111111-1111-4111-8111-111111111111", Email: "neo@example.com"},
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	listFn    func(context.Context, string) ([]models.Post, error)
	getByIDFn func(context.Context, int64) (*models.Post, error)
	createFn  func(context.Context, models.PostInsert) (*models.Post, error)
	deleteFn  func(context.Context, int64) error
	likeFn    func(context.Context, int64, string) error
	unlikeFn  func(context.Context, int64, string) error
}

func (s *postRepoStub) List(ctx context.Context, category string) ([]models.Post, error) {
	return s.listFn(ctx, category)
}
func (s *postRepoStub) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Create(ctx context.Context, in models.PostInsert) (*models.Post, error) {
	return s.createFn(ctx, in)
}
func (s *postRepoStub) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, postID int64, userID string) error {
	return s.likeFn(ctx, postID, userID)
}
func (s *postRepoStub) Unlike(ctx context.Context, postID int64, userID string) error {
	return s.unlikeFn(ctx, postID, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		listFn:    func(_ context.Context, _ string) ([]models.Post, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id int64) (*models.Post, error) { return &models.Post{ID: id}, nil },
		createFn: func(_ context.Context, in models.PostInsert) (*models.Post, error) {
			return &models.Post{ID: 1, Text: in.Text, Category: in.Category, CategoryColor: in.CategoryColor,
				Location: in.Location, HasPhoto: in.HasPhoto, PhotoURL: in.PhotoURL}, nil
		},
		deleteFn: func(_ context.Context, _ int64) error { return nil },
		likeFn:   func(_ context.Context, _ int64, _ string) error { return nil },
		unlikeFn: func(_ context.Context, _ int64, _ string) error { return nil },
	}
}

// storeStub is a stub for storage.ObjectStore.
type storeStub struct {
	uploadFn func(context.Context, string, string, []byte) error
	removeFn func(context.Context, ...string) error
	uploaded []string
	removed  []string
}

func (s *storeStub) Upload(ctx context.Context, name, contentType string, data []byte) error {
	s.uploaded = append(s.uploaded, name)
	if s.uploadFn != nil {
		return s.uploadFn(ctx, name, contentType, data)
	}
	return nil
}
func (s *storeStub) PublicURL(name string) string {
	return "https://demo.supabase.co/storage/v1/object/public/post_images/" + name
}
func (s *storeStub) Remove(ctx context.Context, names ...string) error {
	s.removed = append(s.removed, names...)
	if s.removeFn != nil {
		return s.removeFn(ctx, names...)
	}
	return nil
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	listFn func(context.Context) ([]models.Category, error)
}

func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.listFn(ctx)
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	listForUserFn func(context.Context, string) ([]models.Message, error)
	historyFn     func(context.Context, string, string, bool) ([]models.Message, error)
	createFn      func(context.Context, models.MessageInsert) (*models.Message, error)
}

func (s *messageRepoStub) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return s.listForUserFn(ctx, userID)
}
func (s *messageRepoStub) History(ctx context.Context, userID, counterpartID string, legacy bool) ([]models.Message, error) {
	return s.historyFn(ctx, userID, counterpartID, legacy)
}
func (s *messageRepoStub) Create(ctx context.Context, in models.MessageInsert) (*models.Message, error) {
	return s.createFn(ctx, in)
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	getFn        func(context.Context, string) (*models.Profile, error)
	updateNameFn func(context.Context, string, string) (*models.Profile, error)
}

func (s *profileRepoStub) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.getFn(ctx, userID)
}
func (s *profileRepoStub) UpdateName(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	return s.updateNameFn(ctx, userID, fullName)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertBackendError asserts that err is an AppError with code BACKEND_ERROR.
func assertBackendError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeBackend)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
