package tui

import "strings"

// LayoutSize represents a responsive breakpoint for terminal width.
type LayoutSize int

const (
	// LayoutCompact is used for terminals narrower than 60 characters.
	LayoutCompact LayoutSize = iota
	// LayoutNormal is used for terminals between 60 and 120 characters.
	LayoutNormal
	// LayoutWide is used for terminals wider than 120 characters.
	LayoutWide
)

// DetectLayout returns the breakpoint for the given terminal width.
func DetectLayout(width int) LayoutSize {
	switch {
	case width < 60:
		return LayoutCompact
	case width <= 120:
		return LayoutNormal
	default:
		return LayoutWide
	}
}

// LayoutConfig holds the display decisions that adapt to terminal
// width: how wide the mean gauge and peer table render, and whether
// per-peer mini gauges fit.
type LayoutConfig struct {
	// GaugeWidth is the character width of the network mean gauge.
	GaugeWidth int
	// TableMaxWidth caps the peer and sample tables.
	TableMaxWidth int
	// ShowMiniGauges renders inline bars in table CPU cells.
	ShowMiniGauges bool
	// SparkWidth is the width for history sparklines.
	SparkWidth int
}

// LayoutForSize returns the layout values for a breakpoint at width.
func LayoutForSize(size LayoutSize, width int) LayoutConfig {
	switch size {
	case LayoutCompact:
		return LayoutConfig{
			GaugeWidth:     10,
			TableMaxWidth:  width - 4,
			ShowMiniGauges: false,
			SparkWidth:     width - 10,
		}
	case LayoutWide:
		return LayoutConfig{
			GaugeWidth:     30,
			TableMaxWidth:  width - 12,
			ShowMiniGauges: true,
			SparkWidth:     90,
		}
	default:
		return LayoutConfig{
			GaugeWidth:     20,
			TableMaxWidth:  width - 8,
			ShowMiniGauges: false,
			SparkWidth:     width - 16,
		}
	}
}

// horizontalRule returns a box-drawing line of the given width.
func horizontalRule(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}

// sectionTitle renders a centered title between horizontal rules:
// "──── Title ────".
func sectionTitle(title string, width int) string {
	decorLen := len([]rune(title)) + 2
	if width <= 0 || decorLen >= width {
		return title
	}

	remaining := width - decorLen
	left := remaining / 2
	return strings.Repeat("─", left) + " " + title + " " + strings.Repeat("─", remaining-left)
}
