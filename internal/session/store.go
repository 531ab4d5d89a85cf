package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pulasafe/internal/cache"
	"pulasafe/internal/models"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Store persists the session between runs. Load returns nil, nil when
// nothing is stored.
type Store interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Clear(ctx context.Context) error
}

// DefaultFile is where FileStore keeps the session when no path is configured.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pulasafe", "session.yml")
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile()
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (*models.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess models.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Save(_ context.Context, sess *models.Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// RedisStore keeps the session of one device in redis.
type RedisStore struct {
	client *redis.Client
	device string
	ttl    time.Duration
}

// NewRedisStore stores under pulasafe:session:<device>. A zero ttl keeps the
// key until it is cleared.
func NewRedisStore(client *redis.Client, device string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, device: device, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*models.Session, error) {
	raw, err := s.client.Get(ctx, cache.SessionKey(s.device)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, cache.SessionKey(s.device), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, cache.SessionKey(s.device)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	sess *models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, nil
	}
	cp := *s.sess
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		s.sess = nil
		return nil
	}
	cp := *sess
	s.sess = &cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}
