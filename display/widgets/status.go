package widgets

import "strings"

// StatusLevel classifies a peer or tracker condition for display.
type StatusLevel int

const (
	// StatusOK: the reading is fresh and counted.
	StatusOK StatusLevel = iota
	// StatusWarning: present but aging out, or partially degraded.
	StatusWarning
	// StatusCritical: present but unusable (corrupt file, bad fields).
	StatusCritical
	// StatusUnknown: nothing published, nothing to judge.
	StatusUnknown
)

// Status glyphs. Filled dot for peers that said something, outline for
// peers that said nothing; color carries the severity.
var statusIcons = map[StatusLevel]string{
	StatusOK:       "●",
	StatusWarning:  "●",
	StatusCritical: "●",
	StatusUnknown:  "○",
}

// StatusConfig holds the configuration for rendering a status indicator.
type StatusConfig struct {
	// Level determines the color and icon.
	Level StatusLevel
	// Text is the label shown next to the indicator.
	Text string
	// ShowIcon controls whether the colored dot is shown.
	ShowIcon bool
}

// RenderStatus renders a status indicator with an optional colored icon
// and text. Colors come from the shared severity palette so peer states
// read consistently next to gauges and sparklines.
func RenderStatus(cfg StatusConfig) string {
	style := levelStyle(cfg.Level)

	if cfg.ShowIcon {
		icon := style.Render(statusIcons[cfg.Level])
		if cfg.Text == "" {
			return icon
		}
		return icon + " " + cfg.Text
	}

	return style.Render(cfg.Text)
}

// RenderStatusFromString renders an iconified indicator from one of the
// tracker's plain status words.
func RenderStatusFromString(status string) string {
	return RenderStatus(StatusConfig{
		Level:    StatusLevelFromString(status),
		Text:     status,
		ShowIcon: true,
	})
}

// StatusLevelFromString maps the status vocabulary used across the
// tracker (peer skip reasons, health levels) to a display level.
func StatusLevelFromString(status string) StatusLevel {
	switch strings.ToLower(status) {
	case "ok", "fresh", "healthy", "none":
		return StatusOK
	case "stale", "degraded", "warning":
		return StatusWarning
	case "critical", "error", "corrupt", "unreadable",
		"bad-json", "no-timestamp", "bad-timestamp", "bad-cpu":
		return StatusCritical
	default:
		// Includes "missing-file": the peer never published, which is
		// an absence rather than a failure.
		return StatusUnknown
	}
}
