// ABOUTME: Durable storage for the session bearer token
// ABOUTME: Defines the Store interface shared by the file, redis and memory backends

package credstore

import (
	"context"
	"fmt"
	"strings"
)

// TokenKey is the single well-known key the credential is stored under
const TokenKey = "token"

// Store persists one bearer token across process restarts.
// Get reports ok=false when no token is stored.
type Store interface {
	Get(ctx context.Context) (token string, ok bool, err error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend
type Options struct {
	Backend   string
	ConfigDir string
	Redis     RedisOptions
}

// Open builds the Store named by opts.Backend
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		dir := opts.ConfigDir
		if dir == "" {
			dir = DefaultConfigDir()
		}
		if dir == "" {
			return nil, fmt.Errorf("cannot determine config directory")
		}
		return NewFileStore(dir), nil
	case BackendRedis:
		return NewRedisStore(opts.Redis)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q (expected file, redis or memory)", opts.Backend)
	}
}
