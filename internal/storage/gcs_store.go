package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps objects in a Google Cloud Storage bucket with public reads.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore connects to bucket. With an empty credentialsFile the
// application default credentials are used.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name, contentType string, data []byte) error {
	// DoesNotExist keeps a retried upload from replacing another post's photo.
	obj := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return nil
}

func (s *GCSStore) PublicURL(name string) string {
	return "https://storage.googleapis.com/" + s.bucket + "/" + url.PathEscape(name)
}

// Remove deletes every named object. Objects that are already gone are skipped.
func (s *GCSStore) Remove(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
