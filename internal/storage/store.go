// Package storage stores post photos. The hosted backend's bucket is the
// default; Google Cloud Storage is the alternative.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/config"
)

// DefaultBucket holds post photos on the hosted backend.
const DefaultBucket = "post_images"

// ObjectStore uploads, addresses and removes photo objects.
type ObjectStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) error
	PublicURL(name string) string
	Remove(ctx context.Context, names ...string) error
}

// PhotoName is the object name for a photo uploaded at t.
func PhotoName(t time.Time) string {
	return fmt.Sprintf("post_%d.jpg", t.UnixMilli())
}

// ObjectNameFromURL returns the last path segment of a public photo URL, or
// "" when there is none.
func ObjectNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

// Open selects the store configured by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config, client *backend.Client) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	default:
		bucket := cfg.PostImagesBucket
		if bucket == "" {
			bucket = DefaultBucket
		}
		return NewBackendStore(client, bucket), nil
	}
}
