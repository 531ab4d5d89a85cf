// Package session tracks the signed-in user of a client device.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
)

// State is the authentication state of a Holder.
type State string

const (
	StateLoading       State = "loading"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// refreshLeeway refreshes tokens that are about to expire as if they already had.
const refreshLeeway = 30 * time.Second

// Auth is the part of the backend auth client a Holder drives.
type Auth interface {
	OnAuthStateChange(fn func(backend.AuthEvent)) *backend.Subscription
	SetSession(sess *models.Session)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// Holder owns the current session. It follows the backend's auth events and
// mirrors every change into its Store.
type Holder struct {
	auth  Auth
	store Store
	now   func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	state    State
	sess     *models.Session
	sub      *backend.Subscription
	watchers map[int]func(State, *models.Session)
	nextID   int
}

func NewHolder(auth Auth, store Store) *Holder {
	return &Holder{
		auth:     auth,
		store:    store,
		now:      time.Now,
		ctx:      context.Background(),
		state:    StateLoading,
		watchers: make(map[int]func(State, *models.Session)),
	}
}

// Start restores the persisted session and subscribes to auth events. It
// returns the resolved state, which is never StateLoading.
func (h *Holder) Start(ctx context.Context) (State, error) {
	h.mu.Lock()
	if h.sub != nil {
		state := h.state
		h.mu.Unlock()
		return state, nil
	}
	h.ctx = context.WithoutCancel(ctx)
	h.mu.Unlock()

	sub := h.auth.OnAuthStateChange(h.handle)
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()

	stored, err := h.store.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not read stored session", slog.String("error", err.Error()))
		stored = nil
	}

	switch {
	case stored == nil:
		h.apply(StateAnonymous, nil)
	case stored.Expired(h.now(), refreshLeeway):
		if stored.RefreshToken == "" {
			h.discard(ctx)
			break
		}
		// A successful refresh publishes TOKEN_REFRESHED, which lands in handle.
		if _, err := h.auth.RefreshSession(ctx, stored.RefreshToken); err != nil {
			slog.WarnContext(ctx, "stored session could not be refreshed", slog.String("error", err.Error()))
			h.discard(ctx)
		}
	default:
		h.auth.SetSession(stored)
	}

	return h.State(), nil
}

func (h *Holder) discard(ctx context.Context) {
	if err := h.store.Clear(ctx); err != nil {
		slog.WarnContext(ctx, "could not clear stored session", slog.String("error", err.Error()))
	}
	h.apply(StateAnonymous, nil)
}

// handle runs on the backend's publishing goroutine, one event at a time.
func (h *Holder) handle(ev backend.AuthEvent) {
	h.mu.Lock()
	ctx := h.ctx
	h.mu.Unlock()

	if ev.Type == backend.EventSignedOut || ev.Session == nil {
		if err := h.store.Clear(ctx); err != nil {
			slog.WarnContext(ctx, "could not clear stored session", slog.String("error", err.Error()))
		}
		h.apply(StateAnonymous, nil)
		return
	}

	if err := h.store.Save(ctx, ev.Session); err != nil {
		slog.WarnContext(ctx, "could not persist session", slog.String("event", string(ev.Type)), slog.String("error", err.Error()))
	}
	h.apply(StateAuthenticated, ev.Session)
}

func (h *Holder) apply(state State, sess *models.Session) {
	h.mu.Lock()
	h.state = state
	h.sess = sess
	watchers := make([]func(State, *models.Session), 0, len(h.watchers))
	for id := 0; id <= h.nextID; id++ {
		if fn, ok := h.watchers[id]; ok {
			watchers = append(watchers, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range watchers {
		fn(state, sess)
	}
}

// SignOut ends the session on the backend and locally. The holder is
// anonymous afterwards even when the backend call fails; that failure is
// logged and returned.
func (h *Holder) SignOut(ctx context.Context) error {
	sess := h.Session()
	err := h.auth.SignOut(backend.WithAccessToken(ctx, sess.Token()))
	if err != nil {
		slog.WarnContext(ctx, "backend sign-out failed", slog.String("error", err.Error()))
	}
	if h.State() != StateAnonymous {
		h.discard(ctx)
	}
	return err
}

// Session returns the current session, or nil when signed out.
func (h *Holder) Session() *models.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sess
}

func (h *Holder) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Watch calls fn after every state change until the returned cancel is called.
func (h *Holder) Watch(fn func(State, *models.Session)) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.watchers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers, id)
			h.mu.Unlock()
		})
	}
}

// Close detaches the holder from the backend's auth events.
func (h *Holder) Close() {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
