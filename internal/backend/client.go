// Package backend is a client for the hosted backend: its auth API, its REST
// table API and its object storage.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pulasafe/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const defaultTimeout = 30 * time.Second

type tokenKey struct{}

// WithAccessToken binds a user's access token to ctx. Calls made with the
// returned context act as that user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessToken returns the token bound by WithAccessToken.
func AccessToken(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok {
		return t
	}
	return ""
}

// Client is the configured handle to the hosted backend. It is safe for
// concurrent use and meant to be built once per process.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	auth    *AuthClient
	storage *StorageClient
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client. An empty URL or key is accepted; calls then fail with
// a backend error instead.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.auth = newAuthClient(c)
	c.storage = &StorageClient{c: c}
	return c
}

// URL returns the configured base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// Configured reports whether both the URL and the API key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Auth returns the auth API handle.
func (c *Client) Auth() *AuthClient {
	return c.auth
}

// Storage returns the object storage handle.
func (c *Client) Storage() *StorageClient {
	return c.storage
}

// From starts a query against a table or view.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

type request struct {
	service   string
	operation string
	method    string
	path      string
	query     url.Values
	header    http.Header
	body      io.Reader
	bearer    string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// do sends r and decodes a successful JSON response into out when out is
// non-nil. Non-2xx responses are returned as *Error.
func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	span, ctx := observability.StartClientSpan(ctx, "backend."+r.service+"."+r.operation,
		attribute.String("backend.service", r.service),
		attribute.String("backend.operation", r.operation),
		attribute.String("http.method", r.method),
	)
	defer func() {
		span.SetError(err)
		span.End()
		observability.ObserveBackendCall(r.service, r.operation, start, err)
	}()

	if c.baseURL == "" {
		return &Error{Message: "backend URL is not configured"}
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.operation, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" && r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.apiKey)

	bearer := r.bearer
	if bearer == "" {
		bearer = AccessToken(ctx)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	span.AddAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", r.operation, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parseError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.operation, err)
	}
	return nil
}
