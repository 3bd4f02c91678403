package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestProgressBarWidth(t *testing.T) {
	for _, pct := range []float64{-10, 0, 33, 100, 250} {
		bar := ProgressBar(pct, 20)
		if w := lipgloss.Width(bar); w != 20 {
			t.Errorf("ProgressBar(%v) width = %d, want 20", pct, w)
		}
	}
}

func TestStars(t *testing.T) {
	tests := []struct {
		rating float64
		filled int
	}{
		{0, 0},
		{4.6, 5},
		{4.4, 4},
		{7, 5},
	}
	for _, tt := range tests {
		got := Stars(tt.rating)
		if n := strings.Count(got, "★"); n != tt.filled {
			t.Errorf("Stars(%v) filled = %d, want %d", tt.rating, n, tt.filled)
		}
		if lipgloss.Width(got) != 5 {
			t.Errorf("Stars(%v) width = %d, want 5", tt.rating, lipgloss.Width(got))
		}
	}
}

func TestReadingBadge(t *testing.T) {
	if !strings.Contains(ReadingBadge("completed"), "DONE") {
		t.Error("expected DONE badge")
	}
	if !strings.Contains(ReadingBadge("paused"), "PAUSED") {
		t.Error("expected unknown statuses to be upper-cased")
	}
}

func TestSparkline(t *testing.T) {
	if Sparkline(nil) != "" {
		t.Error("expected empty sparkline for no values")
	}
	if got := Sparkline([]int{0, 0, 50, 100}); !strings.Contains(got, "▁▁▄█") {
		t.Errorf("expected ▁▁▄█, got %q", got)
	}
	if flat := Sparkline([]int{0, 0}); !strings.Contains(flat, "▁▁") || lipgloss.Width(flat) != 2 {
		t.Errorf("expected flat floor, got %q", flat)
	}
}
