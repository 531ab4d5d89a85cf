package storage

import (
	"bytes"
	"context"

	"pulasafe/internal/backend"
)

// BackendStore keeps objects in a bucket of the hosted backend.
type BackendStore struct {
	client *backend.Client
	bucket string
}

func NewBackendStore(client *backend.Client, bucket string) *BackendStore {
	return &BackendStore{client: client, bucket: bucket}
}

func (s *BackendStore) Upload(ctx context.Context, name, contentType string, data []byte) error {
	return s.client.Storage().Upload(ctx, s.bucket, name, contentType, bytes.NewReader(data))
}

func (s *BackendStore) PublicURL(name string) string {
	return s.client.Storage().PublicURL(s.bucket, name)
}

func (s *BackendStore) Remove(ctx context.Context, names ...string) error {
	return s.client.Storage().Remove(ctx, s.bucket, names...)
}
