package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"pulasafe/internal/backend"
	"pulasafe/internal/cache"
	"pulasafe/internal/config"
	"pulasafe/internal/featureflags"
	"pulasafe/internal/models"
	"pulasafe/internal/repository"
	"pulasafe/internal/service"
	"pulasafe/internal/session"
	"pulasafe/internal/storage"

	"github.com/redis/go-redis/v9"
)

const redisSessionTTL = 30 * 24 * time.Hour

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg    *config.Config
	client *backend.Client
	redis  *redis.Client
	holder *session.Holder

	auth       *service.AuthService
	feed       *service.FeedService
	categories *service.CategoryService
	messaging  *service.MessagingService
	profile    *service.ProfileService

	asJSON bool
	out    io.Writer
	in     *bufio.Reader
}

func (a *app) init(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	a.cfg = cfg
	a.out = out
	a.in = bufio.NewReader(in)
	a.client = backend.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, backend.WithTimeout(cfg.BackendTimeout()))

	photos, err := storage.Open(ctx, cfg, a.client)
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	a.holder = session.NewHolder(a.client.Auth(), a.openStore())
	if _, err := a.holder.Start(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	a.auth = service.NewAuthService(a.client.Auth(), cfg.PasswordResetRedirect, cfg.OAuthRedirect)
	a.feed = service.NewFeedService(repository.NewPostRepository(a.client), photos, cfg.PhotoMaxBytes())
	a.categories = service.NewCategoryService(repository.NewCategoryRepository(a.client))
	a.messaging = service.NewMessagingService(repository.NewMessageRepository(a.client), featureflags.NewManager(cfg.FeatureFlags))
	a.profile = service.NewProfileService(repository.NewProfileRepository(a.client))
	return nil
}

func (a *app) openStore() session.Store {
	switch a.cfg.SessionStore {
	case "memory":
		return session.NewMemoryStore()
	case "redis":
		if a.redis = cache.InitRedis(a.cfg.RedisURL); a.redis != nil {
			device, err := os.Hostname()
			if err != nil || device == "" {
				device = "default"
			}
			return session.NewRedisStore(a.redis, device, redisSessionTTL)
		}
		slog.Warn("redis session store unavailable, using the session file")
	}

	path := a.cfg.SessionFile
	if path == "" {
		path = session.DefaultFile()
	}
	return session.NewFileStore(path)
}

// close detaches the session holder and closes the redis client. It is a
// no-op before init.
func (a *app) close() {
	if a.holder != nil {
		a.holder.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) session() *models.Session {
	return a.holder.Session()
}

// prompt reads one line from the command's input when value is empty.
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// emit prints v as indented JSON when --json is set and calls text otherwise.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

// readFailed shows a listing the backend could not serve as an empty one,
// followed by the retry message. Other errors, and every error under --json,
// are returned unchanged.
func (a *app) readFailed(err error, empty string) error {
	var appErr *models.AppError
	if a.asJSON || !models.IsBackendError(err) || !errors.As(err, &appErr) {
		return err
	}
	fmt.Fprintln(a.out, empty)
	fmt.Fprintln(a.out, appErr.Message)
	return nil
}
