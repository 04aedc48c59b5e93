package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlacklistStore registra tokens revocados hasta su vencimiento natural.
// Los errores del store se devuelven al llamador: quien consulta decide
// fail-closed (tratar "no sé" como revocado).
type BlacklistStore interface {
	Revoke(token string, ttl time.Duration) error
	IsRevoked(token string) (bool, error)
}

type memoryBlacklistStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemoryBlacklistStore() BlacklistStore {
	return &memoryBlacklistStore{
		items: make(map[string]time.Time),
	}
}

func (s *memoryBlacklistStore) Revoke(token string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *memoryBlacklistStore) IsRevoked(token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[token]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(exp) {
		delete(s.items, token)
		return false, nil
	}
	return true, nil
}

type redisBlacklistStore struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

func NewRedisBlacklistStore(client *redis.Client) BlacklistStore {
	if client == nil {
		return nil
	}
	return &redisBlacklistStore{
		client:  client,
		prefix:  "blacklist:",
		timeout: 500 * time.Millisecond,
	}
}

func (s *redisBlacklistStore) Revoke(token string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+token, "blacklisted", ttl).Err()
}

func (s *redisBlacklistStore) IsRevoked(token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
