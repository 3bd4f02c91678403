// ABOUTME: File-backed credential store in the XDG config directory
// ABOUTME: Writes credentials.json atomically with owner-only permissions

package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// AppName names the config directory
const AppName = "shelf"

const credentialsFile = "credentials.json"

// FileStore keeps the token in <configDir>/credentials.json
type FileStore struct {
	mu        sync.Mutex
	configDir string
}

type credentialsData struct {
	Token string `json:"token"`
}

// NewFileStore creates a FileStore rooted at configDir
func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir}
}

// DefaultConfigDir returns the default config directory following XDG spec
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the credentials file location
func (s *FileStore) Path() string {
	return filepath.Join(s.configDir, credentialsFile)
}

// Get reads the stored token
func (s *FileStore) Get(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read credentials: %w", err)
	}

	var creds credentialsData
	if err := json.Unmarshal(data, &creds); err != nil {
		// Corrupt file, treat as logged out
		log.Warn().Err(err).Str("path", s.Path()).Msg("ignoring unreadable credentials file")
		return "", false, nil
	}
	if creds.Token == "" {
		return "", false, nil
	}
	return creds.Token, true, nil
}

// Set writes the token, replacing any previous one
func (s *FileStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(credentialsData{Token: token}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.configDir, credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Delete removes the credentials file. Deleting a missing file is not an error.
func (s *FileStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
