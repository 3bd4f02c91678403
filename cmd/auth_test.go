// ABOUTME: Tests for register, login, logout, status and whoami
// ABOUTME: Runs each command against the stub backend with a file credential store

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shelfhq/shelf/internal/credstore"
	"github.com/shelfhq/shelf/internal/testsupport/stubbackend"
)

func TestLogin_StoresTokenAndShowsPoints(t *testing.T) {
	srv := testEnv(t)
	if _, err := srv.AddUser("reader", "hunter22", 1500); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	authUsername, authPassword = "reader", "hunter22"

	var buf bytes.Buffer
	if code := runLogin(context.Background(), &buf); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	out := buf.String()
	if !strings.Contains(out, "Logged in as reader") {
		t.Errorf("expected greeting, got %q", out)
	}
	if !strings.Contains(out, "1,500 pts") {
		t.Errorf("expected formatted points, got %q", out)
	}
	if _, ok := storedToken(t); !ok {
		t.Error("expected token to be persisted")
	}
}

func TestLogin_BadPassword(t *testing.T) {
	srv := testEnv(t)
	if _, err := srv.AddUser("reader", "hunter22", 0); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	authUsername, authPassword = "reader", "wrong"

	var buf bytes.Buffer
	if code := runLogin(context.Background(), &buf); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if !strings.Contains(buf.String(), "Incorrect username or password") {
		t.Errorf("expected backend detail, got %q", buf.String())
	}
	if _, ok := storedToken(t); ok {
		t.Error("expected no token after failed login")
	}
}

func TestLogin_MissingFlagsWithoutTerminal(t *testing.T) {
	srv := testEnv(t)

	var buf bytes.Buffer
	if code := runLogin(context.Background(), &buf); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if !strings.Contains(buf.String(), "--username and --password are required") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if srv.Requests() != 0 {
		t.Errorf("expected no backend requests, got %d", srv.Requests())
	}
}

func TestRegister_StartsSession(t *testing.T) {
	testEnv(t)
	authUsername, authEmail, authPassword = "newbie", "newbie@example.com", "pw123456"

	var buf bytes.Buffer
	if code := runRegister(context.Background(), &buf); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Registered as newbie") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if _, ok := storedToken(t); !ok {
		t.Error("expected token to be persisted")
	}
}

func TestRegister_InvalidUsernameNeverHitsBackend(t *testing.T) {
	srv := testEnv(t)
	authUsername, authEmail, authPassword = "no spaces", "x@example.com", "pw"

	var buf bytes.Buffer
	if code := runRegister(context.Background(), &buf); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if srv.Requests() != 0 {
		t.Errorf("expected no backend requests, got %d", srv.Requests())
	}
}

func TestStatus_ExitCodes(t *testing.T) {
	srv := testEnv(t)
	ctx := context.Background()
	now := time.Now()

	var buf bytes.Buffer
	if code := runStatus(ctx, &buf, now); code != 1 {
		t.Errorf("expected exit 1 while anonymous, got %d", code)
	}
	if !strings.Contains(buf.String(), "Not logged in") {
		t.Errorf("unexpected output %q", buf.String())
	}

	loginAs(t, srv, "reader", 0)
	buf.Reset()
	if code := runStatus(ctx, &buf, now); code != 0 {
		t.Errorf("expected exit 0 when logged in, got %d", code)
	}
	if !strings.Contains(buf.String(), "reader") || !strings.Contains(buf.String(), "expires in") {
		t.Errorf("expected subject and expiry, got %q", buf.String())
	}

	buf.Reset()
	runStatus(ctx, &buf, now.Add(2*time.Hour))
	if !strings.Contains(buf.String(), "expired") {
		t.Errorf("expected expired token, got %q", buf.String())
	}
	if srv.Requests() != 0 {
		t.Errorf("status must not call the backend, got %d requests", srv.Requests())
	}
}

func TestStatus_JSON(t *testing.T) {
	srv := testEnv(t)
	loginAs(t, srv, "reader", 0)
	jsonOutput = true

	var buf bytes.Buffer
	runStatus(context.Background(), &buf, time.Now())

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["authenticated"] != true || parsed["subject"] != "reader" || parsed["expired"] != false {
		t.Errorf("unexpected JSON %v", parsed)
	}
}

func TestWhoami(t *testing.T) {
	srv := testEnv(t)
	loginAs(t, srv, "reader", 42)

	var buf bytes.Buffer
	if code := runWhoami(context.Background(), &buf); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "reader") || !strings.Contains(buf.String(), "42 pts") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWhoami_RejectedTokenClearsSession(t *testing.T) {
	srv := testEnv(t)
	if _, err := srv.AddUser("reader", "pw", 0); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	forged := stubbackend.New(stubbackend.WithSecret("other-secret")).IssueToken("reader")
	if err := credstore.NewFileStore(configDir).Set(context.Background(), forged); err != nil {
		t.Fatalf("store token: %v", err)
	}

	var buf bytes.Buffer
	if code := runWhoami(context.Background(), &buf); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if !strings.Contains(buf.String(), "session expired") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if _, ok := storedToken(t); ok {
		t.Error("expected the rejected token to be cleared")
	}
}

func TestLogout(t *testing.T) {
	srv := testEnv(t)
	loginAs(t, srv, "reader", 0)

	var buf bytes.Buffer
	if code := runLogout(context.Background(), &buf); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "Logged out") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if _, ok := storedToken(t); ok {
		t.Error("expected token to be removed")
	}

	buf.Reset()
	runLogout(context.Background(), &buf)
	if !strings.Contains(buf.String(), "Not logged in") {
		t.Errorf("expected idempotent logout, got %q", buf.String())
	}
}
