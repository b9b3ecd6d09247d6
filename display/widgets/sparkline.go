package widgets

import (
	"math"
	"strings"
)

// sparkBlocks contains 8 unicode block characters for sparkline rendering,
// ordered from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkGap marks samples where no peer reported, so quiet cycles read
// as holes in the line rather than zero load.
const sparkGap = '·'

// SparklineConfig controls the appearance of a CPU history sparkline.
type SparklineConfig struct {
	// Data points to render (most recent last), as percentages on a
	// fixed 0-100 scale. Negative values are no-data gaps.
	Data []float64
	// Width is the number of characters to render. If 0, uses
	// len(Data); if smaller than len(Data), only the most recent
	// points are shown.
	Width int
	// Colorize applies the severity palette per sample.
	Colorize bool
	// Label is optional text shown before the sparkline.
	Label string
}

// RenderSparkline renders a unicode sparkline from the given
// configuration. The scale is always 0-100 so two sparklines are
// visually comparable regardless of their data.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Data) == 0 {
		return ""
	}

	data := cfg.Data
	width := cfg.Width
	if width <= 0 {
		width = len(data)
	}
	if width < len(data) {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	for _, v := range data {
		if v < 0 {
			if cfg.Colorize {
				sb.WriteString(styleGap.Render(string(sparkGap)))
			} else {
				sb.WriteRune(sparkGap)
			}
			continue
		}

		normalized := math.Min(v, 100) / 100
		idx := int(normalized * float64(len(sparkBlocks)-1))
		if cfg.Colorize {
			sb.WriteString(severity(v).Render(string(sparkBlocks[idx])))
		} else {
			sb.WriteRune(sparkBlocks[idx])
		}
	}

	// Left-pad so a short history still occupies the full width, with
	// the newest samples anchored to the right edge.
	out := sb.String()
	if width > len(data) {
		out = strings.Repeat(" ", width-len(data)) + out
	}

	if cfg.Label != "" {
		out = cfg.Label + " " + out
	}
	return out
}
