// ABOUTME: Configuration loader for the shelf CLI
// ABOUTME: Loads settings from an optional .env file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/shelfhq/shelf/internal/credstore"
)

// DefaultAPIURL is the backend used when SHELF_API_URL is unset
const DefaultAPIURL = "http://127.0.0.1:8000"

type Config struct {
	// Backend
	APIURL           string
	HTTPTimeout      int // seconds
	CategoryCacheTTL int // seconds, 0 disables

	// Credential storage
	ConfigDir       string
	CredentialStore string // file, redis, memory
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisNamespace  string

	// Session
	ClearOnUnauthorized bool

	// Logging
	LogLevel  string
	LogFormat string // text, json
	DebugLog  bool   // write logs to <ConfigDir>/debug.log instead of stderr
}

// Timeout returns HTTPTimeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// CategoryTTL returns CategoryCacheTTL as a duration
func (c *Config) CategoryTTL() time.Duration {
	return time.Duration(c.CategoryCacheTTL) * time.Second
}

// CredentialOptions builds the credstore options for this config
func (c *Config) CredentialOptions() credstore.Options {
	return credstore.Options{
		Backend:   c.CredentialStore,
		ConfigDir: c.ConfigDir,
		Redis: credstore.RedisOptions{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			Namespace: c.RedisNamespace,
		},
	}
}

// Load reads the .env file named by SHELF_ENV_FILE (default ./.env) if it
// exists, then builds the config from the environment. Variables already
// set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnv("SHELF_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:           strings.TrimRight(ensureScheme(getEnv("SHELF_API_URL", DefaultAPIURL)), "/"),
		HTTPTimeout:      getEnvInt("SHELF_HTTP_TIMEOUT", 30),
		CategoryCacheTTL: getEnvInt("SHELF_CATEGORY_CACHE_TTL", 300),

		ConfigDir:       getEnv("SHELF_CONFIG_DIR", credstore.DefaultConfigDir()),
		CredentialStore: strings.ToLower(getEnv("SHELF_CREDENTIAL_STORE", credstore.BackendFile)),
		RedisAddr:       getEnv("SHELF_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("SHELF_REDIS_PASSWORD"),
		RedisDB:         getEnvInt("SHELF_REDIS_DB", 0),
		RedisNamespace:  getEnv("SHELF_REDIS_NAMESPACE", credstore.DefaultNamespace),

		ClearOnUnauthorized: getEnvBool("SHELF_CLEAR_ON_UNAUTHORIZED", true),

		LogLevel:  getEnv("LOG_LEVEL", "warn"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DebugLog:  getEnvBool("SHELF_DEBUG_LOG", false),
	}

	switch cfg.CredentialStore {
	case credstore.BackendFile, credstore.BackendRedis, credstore.BackendMemory:
	default:
		return nil, fmt.Errorf("SHELF_CREDENTIAL_STORE must be file, redis or memory, got %q", cfg.CredentialStore)
	}
	if cfg.HTTPTimeout < 1 || cfg.HTTPTimeout > 600 {
		return nil, fmt.Errorf("SHELF_HTTP_TIMEOUT must be between 1 and 600, got %d", cfg.HTTPTimeout)
	}
	if cfg.CategoryCacheTTL < 0 {
		return nil, fmt.Errorf("SHELF_CATEGORY_CACHE_TTL must not be negative, got %d", cfg.CategoryCacheTTL)
	}
	if cfg.RedisDB < 0 {
		return nil, fmt.Errorf("SHELF_REDIS_DB must not be negative, got %d", cfg.RedisDB)
	}

	return cfg, nil
}

// loadEnvFile applies path if it exists. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		log.Debug().Str("path", path).Msg("loaded env file")
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// ensureScheme adds http:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}
