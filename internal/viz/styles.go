package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rowhit/polypath/internal/track"
)

var (
	HeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	LabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	HelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	PanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)

	convergedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	divergedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	exhaustedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	barFullStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// VerdictBadge renders a verdict in its status color.
func VerdictBadge(v track.Verdict) string {
	switch v {
	case track.VerdictConverged:
		return convergedStyle.Render(v.String())
	case track.VerdictDiverged:
		return divergedStyle.Render(v.String())
	case track.VerdictExhausted:
		return exhaustedStyle.Render(v.String())
	default:
		return pendingStyle.Render(v.String())
	}
}

// ProgressBar renders tracking progress through t in [0,1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent > 0.8 {
		return barFullStyle.Render(bar)
	} else if percent > 0.4 {
		return barMidStyle.Render(bar)
	}
	return barLowStyle.Render(bar)
}

// Spinner returns one frame of the working indicator.
func Spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}
