package format

import "fmt"

// Percent renders a CPU percentage with one decimal, e.g. "42.5%".
// Negative values are the no-data sentinel and render as "--".
func Percent(v float64) string {
	if v < 0 {
		return "--"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// TruncateWithEllipsis truncates a string to maxWidth runes, appending
// "..." if the string exceeds the limit. If maxWidth is less than 4,
// the string is hard-truncated without an ellipsis suffix.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}

	if maxWidth < 4 {
		return string(runes[:maxWidth])
	}

	return string(runes[:maxWidth-3]) + "..."
}
