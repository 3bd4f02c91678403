// ABOUTME: Shared setup for command tests
// ABOUTME: Points the CLI at a stub backend and a temporary config directory

package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shelfhq/shelf/internal/credstore"
	"github.com/shelfhq/shelf/internal/testsupport/stubbackend"
)

// testEnv starts a stub backend and points the global flags at it
func testEnv(t *testing.T) *stubbackend.Server {
	t.Helper()
	srv := stubbackend.Start(t)
	dir := t.TempDir()

	t.Setenv("SHELF_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("SHELF_CREDENTIAL_STORE", "file")
	t.Setenv("SHELF_CLEAR_ON_UNAUTHORIZED", "true")
	t.Setenv("SHELF_DEBUG_LOG", "false")
	t.Setenv("LOG_LEVEL", "error")

	apiURL = srv.URL
	configDir = dir
	jsonOutput = false
	prevInteractive := interactive
	interactive = func() bool { return false }

	t.Cleanup(func() {
		apiURL = ""
		configDir = ""
		jsonOutput = false
		authUsername, authEmail, authPassword = "", "", ""
		interactive = prevInteractive
	})
	return srv
}

// loginAs creates a user on srv and stores its token as if `shelf login` ran
func loginAs(t *testing.T, srv *stubbackend.Server, username string, points int) string {
	t.Helper()
	token, err := srv.AddUser(username, "secret-pw", points)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := credstore.NewFileStore(configDir).Set(context.Background(), token); err != nil {
		t.Fatalf("store token: %v", err)
	}
	return token
}

func storedToken(t *testing.T) (string, bool) {
	t.Helper()
	token, ok, err := credstore.NewFileStore(configDir).Get(context.Background())
	if err != nil {
		t.Fatalf("read token: %v", err)
	}
	return token, ok
}
