// ABOUTME: Shared lipgloss styles for CLI output and the catalog browser
// ABOUTME: Defines colors, badges, the reading progress bar and sales sparklines

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors - Core palette
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Text      = lipgloss.Color("#F9FAFB") // Light
	Accent    = lipgloss.Color("#8B5CF6") // Lighter purple for highlights
	Info      = lipgloss.Color("#3B82F6") // Blue

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted)

	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	ActivePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	Help = lipgloss.NewStyle().
		Foreground(Muted).
		MarginTop(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	// Points is used wherever a balance is shown
	Points = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)
)

// Level is the severity of a badge
type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelCritical
	LevelInfo
	LevelNeutral
)

// Badge renders a colored inline badge
func Badge(text string, level Level) string {
	var bg, fg lipgloss.Color
	switch level {
	case LevelOK:
		bg, fg = Secondary, lipgloss.Color("#FFFFFF")
	case LevelWarning:
		bg, fg = Warning, lipgloss.Color("#000000")
	case LevelCritical:
		bg, fg = Danger, lipgloss.Color("#FFFFFF")
	case LevelInfo:
		bg, fg = Info, lipgloss.Color("#FFFFFF")
	default:
		bg, fg = Muted, lipgloss.Color("#FFFFFF")
	}

	return lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 1).
		Bold(true).
		Render(text)
}

// ReadingBadge labels a reading status
func ReadingBadge(status string) string {
	switch status {
	case "completed":
		return Badge("DONE", LevelOK)
	case "reading":
		return Badge("READING", LevelInfo)
	case "":
		return Badge("NEW", LevelNeutral)
	default:
		return Badge(strings.ToUpper(status), LevelNeutral)
	}
}

// ProgressBar returns a styled progress bar string
func ProgressBar(percent float64, width int) string {
	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	color := Info
	if percent >= 100 {
		color = Secondary
	}
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// Stars renders a 0-5 rating as filled and empty stars
func Stars(rating float64) string {
	n := int(rating + 0.5)
	if n > 5 {
		n = 5
	}
	if n < 0 {
		n = 0
	}
	return lipgloss.NewStyle().Foreground(Warning).Render(strings.Repeat("★", n)) +
		lipgloss.NewStyle().Foreground(Muted).Render(strings.Repeat("☆", 5-n))
}

// sparkBlocks are the bar heights used by Sparkline, lowest first
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders one block per value, scaled from zero to the largest value.
// Sales and points are never negative, so the floor is always zero.
func Sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	peak := 0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if peak > 0 && v > 0 {
			idx = v * (len(sparkBlocks) - 1) / peak
		}
		out[i] = sparkBlocks[idx]
	}
	return lipgloss.NewStyle().Foreground(Accent).Render(string(out))
}
