package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StorageClient talks to the backend's object storage.
type StorageClient struct {
	c *Client
}

func objectPath(bucket, name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

// Upload stores body as bucket/name. Existing objects are not overwritten.
func (s *StorageClient) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) error {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("x-upsert", "false")
	return s.c.do(ctx, request{
		service:   "storage",
		operation: "upload",
		method:    http.MethodPost,
		path:      "/storage/v1/object/" + objectPath(bucket, name),
		header:    h,
		body:      body,
	}, nil)
}

// PublicURL returns the public read URL of bucket/name. No request is made.
func (s *StorageClient) PublicURL(bucket, name string) string {
	return s.c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, name)
}

// Remove deletes the named objects from bucket.
func (s *StorageClient) Remove(ctx context.Context, bucket string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	body, err := jsonBody(map[string][]string{"prefixes": names})
	if err != nil {
		return err
	}
	return s.c.do(ctx, request{
		service:   "storage",
		operation: "remove",
		method:    http.MethodDelete,
		path:      "/storage/v1/object/" + url.PathEscape(bucket),
		body:      body,
	}, nil)
}
