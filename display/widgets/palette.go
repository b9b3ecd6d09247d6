// Package widgets provides terminal rendering primitives for CPU
// telemetry: sparklines, gauges and severity coloring shared by the
// banner and the TUI.
package widgets

import "github.com/charmbracelet/lipgloss"

// Severity thresholds for CPU percentages, shared by every widget so a
// value reads the same color everywhere.
const (
	// WarnThreshold is the percentage at which color shifts to yellow.
	WarnThreshold = 70.0
	// DangerThreshold is the percentage at which color shifts to red.
	DangerThreshold = 90.0
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	styleHot  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	styleGap  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

// severity maps a CPU percentage to its display style.
func severity(percent float64) lipgloss.Style {
	switch {
	case percent >= DangerThreshold:
		return styleHot
	case percent >= WarnThreshold:
		return styleWarn
	default:
		return styleOK
	}
}

// levelStyle maps a StatusLevel to the same palette.
func levelStyle(level StatusLevel) lipgloss.Style {
	switch level {
	case StatusWarning:
		return styleWarn
	case StatusCritical:
		return styleHot
	case StatusUnknown:
		return styleGap
	default:
		return styleOK
	}
}
