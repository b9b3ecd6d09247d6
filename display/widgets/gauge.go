package widgets

import (
	"math"
	"strings"

	"github.com/OpenMined/cpu-tracker-leader/internal/format"
)

const (
	gaugeFilled = "█"
	gaugeEmpty  = "░"
)

// GaugeConfig controls the appearance of a horizontal CPU gauge.
type GaugeConfig struct {
	// Width is the total character width of the gauge bar.
	Width int
	// Percent is the value from 0 to 100. Negative values are the
	// no-data sentinel and render as an empty bar.
	Percent float64
	// Label is optional text shown to the left of the bar.
	Label string
	// ShowPercent controls whether the value is shown to the right.
	ShowPercent bool
}

// RenderGauge renders a horizontal bar gauge colored by the severity
// palette. Format: [Label] ████████░░░░ 42.5%
func RenderGauge(cfg GaugeConfig) string {
	width := cfg.Width
	if width <= 0 {
		width = 20
	}

	var bar string
	if cfg.Percent < 0 {
		bar = styleGap.Render(strings.Repeat(gaugeEmpty, width))
	} else {
		percent := math.Min(100, cfg.Percent)
		filled := int(math.Round(percent / 100.0 * float64(width)))
		bar = severity(percent).Render(strings.Repeat(gaugeFilled, filled)) +
			strings.Repeat(gaugeEmpty, width-filled)
	}

	var sb strings.Builder
	if cfg.Label != "" {
		sb.WriteString(cfg.Label)
		sb.WriteString(" ")
	}
	sb.WriteString(bar)
	if cfg.ShowPercent {
		sb.WriteString(" ")
		sb.WriteString(format.Percent(cfg.Percent))
	}
	return sb.String()
}

// RenderMiniGauge renders a compact gauge bar with no label or value
// text, for one-line-per-peer listings.
func RenderMiniGauge(percent float64, width int) string {
	return RenderGauge(GaugeConfig{Width: width, Percent: percent})
}
