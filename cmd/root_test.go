// ABOUTME: Tests for the root command and global flag handling
// ABOUTME: Verifies environment variable and flag configuration

package cmd

import (
	"testing"
)

func TestGetAPIURL_Default(t *testing.T) {
	t.Setenv("SHELF_API_URL", "")
	apiURL = ""

	url := GetAPIURL()
	if url != "http://127.0.0.1:8000" {
		t.Errorf("expected default URL http://127.0.0.1:8000, got %s", url)
	}
}

func TestGetAPIURL_FromEnv(t *testing.T) {
	t.Setenv("SHELF_API_URL", "http://backend.example.com/")
	apiURL = ""

	url := GetAPIURL()
	if url != "http://backend.example.com" {
		t.Errorf("expected http://backend.example.com, got %s", url)
	}
}

func TestGetAPIURL_FlagOverridesEnv(t *testing.T) {
	t.Setenv("SHELF_API_URL", "http://backend.example.com")
	apiURL = "http://flag-override.example.com"
	defer func() { apiURL = "" }()

	url := GetAPIURL()
	if url != "http://flag-override.example.com" {
		t.Errorf("expected flag to override env, got %s", url)
	}
}

func TestJSONOutput(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	if !IsJSONOutput() {
		t.Error("expected IsJSONOutput to return true")
	}
}

func TestCommandTree(t *testing.T) {
	want := [][]string{
		{"health"}, {"login"}, {"logout"}, {"register"}, {"status"}, {"whoami"},
		{"points", "add"}, {"topup", "truemoney"}, {"payments"},
		{"books", "list"}, {"books", "download"}, {"buy"},
		{"library", "check"}, {"reviews", "add"}, {"reading", "complete"},
		{"creator", "follow"}, {"profile", "username"}, {"settings", "set"},
		{"overview"}, {"browse"}, {"recommend"}, {"version"},
	}
	for _, path := range want {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == rootCmd {
			t.Errorf("expected command %v to exist", path)
		}
	}
}
