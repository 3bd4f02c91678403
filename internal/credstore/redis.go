// ABOUTME: Redis-backed credential store for shared or headless environments
// ABOUTME: Keeps the token under <namespace>:token

package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes the redis key when none is configured
const DefaultNamespace = "shelf"

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Namespace   string
	DialTimeout time.Duration
}

// RedisStore keeps the token in a single redis string key
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore connects to the configured redis server
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       []string{addr},
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
		MaxRetries:  2,
	})
	return NewRedisStoreWithClient(client, opts.Namespace), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, namespace string) *RedisStore {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{client: client, key: namespace + ":" + TokenKey}
}

// Key returns the redis key holding the token
func (s *RedisStore) Key() string {
	return s.key
}

// Get reads the stored token
func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Set writes the token with no expiry
func (s *RedisStore) Set(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Delete removes the token key
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// Close releases the redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
