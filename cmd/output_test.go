package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatPoints(t *testing.T) {
	tests := map[int]string{0: "0 pts", 950: "950 pts", 1250: "1,250 pts", 1000000: "1,000,000 pts"}
	for in, want := range tests {
		if got := formatPoints(in); got != want {
			t.Errorf("formatPoints(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDocument(t *testing.T) {
	out := formatDocument(map[string]interface{}{
		"total_books": 12.0,
		"bio":         "",
		"ratio":       0.5,
		"tags":        []interface{}{"a"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "bio:") || !strings.HasSuffix(lines[0], "-") {
		t.Errorf("expected sorted keys with placeholder, got %q", lines[0])
	}
	if !strings.Contains(out, "0.50") || !strings.Contains(out, `["a"]`) {
		t.Errorf("unexpected rendering %q", out)
	}
	if !strings.HasSuffix(lines[3], "12") {
		t.Errorf("expected whole numbers without decimals, got %q", lines[3])
	}
}

func TestParseSettingValue(t *testing.T) {
	if v := parseSettingValue("true"); v != true {
		t.Errorf("expected bool, got %#v", v)
	}
	if v := parseSettingValue("14"); v != 14.0 {
		t.Errorf("expected number, got %#v", v)
	}
	if v := parseSettingValue("dark"); v != "dark" {
		t.Errorf("expected raw string, got %#v", v)
	}
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	emit(&buf, map[string]int{"n": 1}, func() string { return "human" })
	if strings.TrimSpace(buf.String()) != "human" {
		t.Errorf("expected human output, got %q", buf.String())
	}

	jsonOutput = true
	defer func() { jsonOutput = false }()
	buf.Reset()
	emit(&buf, map[string]int{"n": 1}, func() string { return "human" })
	var parsed map[string]int
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil || parsed["n"] != 1 {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	runVersion(&buf)
	if !strings.Contains(buf.String(), "shelf dev") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
