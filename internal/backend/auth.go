package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"pulasafe/internal/models"
)

// AuthEventType names a change of the authenticated session.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is published on every session change. Session is nil for sign-out.
type AuthEvent struct {
	Type    AuthEventType
	Session *models.Session
}

// Subscription is a registered auth listener.
type Subscription struct {
	once  sync.Once
	unsub func()
}

// Unsubscribe detaches the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsub)
}

// AuthClient talks to the auth API and keeps the client's current session.
type AuthClient struct {
	c *Client

	mu      sync.Mutex
	current *models.Session
	nextID  int
	subs    []subscriber

	// publishing serializes delivery so listeners observe events in order.
	publishing sync.Mutex
}

type subscriber struct {
	id int
	fn func(AuthEvent)
}

func newAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

// OnAuthStateChange registers fn for every subsequent auth event. Listeners run
// synchronously in registration order and must not trigger auth events themselves.
func (a *AuthClient) OnAuthStateChange(fn func(AuthEvent)) *Subscription {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.subs = append(a.subs, subscriber{id: id, fn: fn})
	a.mu.Unlock()

	return &Subscription{unsub: func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i:i], a.subs[i+1:]...)
				return
			}
		}
	}}
}

func (a *AuthClient) publish(ev AuthEvent) {
	a.publishing.Lock()
	defer a.publishing.Unlock()

	a.mu.Lock()
	a.current = ev.Session
	subs := make([]subscriber, len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// CurrentSession returns the session of the last auth event, if any.
func (a *AuthClient) CurrentSession() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// SetSession installs a session obtained elsewhere (for example one restored
// from disk or returned by an OAuth redirect) and publishes it.
func (a *AuthClient) SetSession(sess *models.Session) {
	if sess == nil {
		return
	}
	a.publish(AuthEvent{Type: EventSignedIn, Session: sess})
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func (t *tokenResponse) session(now time.Time) *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

func (a *AuthClient) token(ctx context.Context, grant string, body any) (*models.Session, error) {
	r, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	var tr tokenResponse
	err = a.c.do(ctx, request{
		service:   "auth",
		operation: "token_" + grant,
		method:    http.MethodPost,
		path:      "/auth/v1/token",
		query:     url.Values{"grant_type": {grant}},
		body:      r,
		bearer:    a.c.apiKey,
	}, &tr)
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, errors.New("backend: token response without access token")
	}
	return tr.session(time.Now()), nil
}

// SignInWithPassword signs in with email and password and publishes SIGNED_IN.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := a.token(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	a.publish(AuthEvent{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// RefreshSession exchanges a refresh token and publishes TOKEN_REFRESHED.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, errors.New("backend: missing refresh token")
	}
	sess, err := a.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	a.publish(AuthEvent{Type: EventTokenRefreshed, Session: sess})
	return sess, nil
}

// SignUpResult is the outcome of a registration. Session is nil when the
// backend requires email confirmation first.
type SignUpResult struct {
	User    models.User
	Session *models.Session
}

// SignUp registers a user with profile metadata. When the backend returns a
// session right away SIGNED_IN is published.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata models.UserMetadata) (*SignUpResult, error) {
	r, err := jsonBody(map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	})
	if err != nil {
		return nil, err
	}

	// The response is either a token response or the bare user.
	var resp struct {
		tokenResponse
		ID       string              `json:"id"`
		Email    string              `json:"email"`
		Metadata models.UserMetadata `json:"user_metadata"`
	}
	err = a.c.do(ctx, request{
		service:   "auth",
		operation: "signup",
		method:    http.MethodPost,
		path:      "/auth/v1/signup",
		body:      r,
		bearer:    a.c.apiKey,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		sess := resp.session(time.Now())
		a.publish(AuthEvent{Type: EventSignedIn, Session: sess})
		return &SignUpResult{User: sess.User, Session: sess}, nil
	}
	return &SignUpResult{User: models.User{ID: resp.ID, Email: resp.Email, Metadata: resp.Metadata}}, nil
}

// AuthorizeURL returns the URL that starts an OAuth sign-in with provider.
// No request is made.
func (a *AuthClient) AuthorizeURL(provider, redirectTo string) string {
	q := url.Values{"provider": {provider}}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return a.c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ResetPasswordForEmail sends a password reset link that opens redirectTo.
func (a *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	r, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return err
	}
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return a.c.do(ctx, request{
		service:   "auth",
		operation: "recover",
		method:    http.MethodPost,
		path:      "/auth/v1/recover",
		query:     q,
		body:      r,
		bearer:    a.c.apiKey,
	}, nil)
}

// GetUser returns the user owning the access token bound to ctx.
func (a *AuthClient) GetUser(ctx context.Context) (*models.User, error) {
	if AccessToken(ctx) == "" {
		if cur := a.CurrentSession(); cur != nil {
			ctx = WithAccessToken(ctx, cur.AccessToken)
		}
	}
	var u models.User
	if err := a.c.do(ctx, request{
		service:   "auth",
		operation: "user",
		method:    http.MethodGet,
		path:      "/auth/v1/user",
	}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session on the backend and publishes SIGNED_OUT. The
// local session is dropped even when the backend call fails.
func (a *AuthClient) SignOut(ctx context.Context) error {
	token := AccessToken(ctx)
	if token == "" {
		if cur := a.CurrentSession(); cur != nil {
			token = cur.AccessToken
		}
	}

	var err error
	if token != "" {
		err = a.c.do(ctx, request{
			service:   "auth",
			operation: "logout",
			method:    http.MethodPost,
			path:      "/auth/v1/logout",
			bearer:    token,
		}, nil)
	}
	a.publish(AuthEvent{Type: EventSignedOut})
	return err
}
