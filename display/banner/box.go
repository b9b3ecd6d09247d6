package banner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rounded box-drawing characters for the card frame.
const (
	boxTopLeft     = '╭'
	boxTopRight    = '╮'
	boxBottomLeft  = '╰'
	boxBottomRight = '╯'
	boxHorizontal  = '─'
	boxVertical    = '│'
)

// RenderBox wraps content lines in a rounded Unicode box with a styled
// title embedded in the top border.
func RenderBox(lines []string, width int, title string, titleColor lipgloss.Color) string {
	if width < 4 {
		width = 80
	}
	innerWidth := width - 2

	var result strings.Builder

	result.WriteRune(boxTopLeft)
	if title != "" {
		styled := lipgloss.NewStyle().Foreground(titleColor).Bold(true).Render(title)
		result.WriteRune(boxHorizontal)
		result.WriteString(" ")
		result.WriteString(styled)
		result.WriteString(" ")
		if remaining := innerWidth - len(title) - 3; remaining > 0 {
			result.WriteString(strings.Repeat(string(boxHorizontal), remaining))
		}
	} else {
		result.WriteString(strings.Repeat(string(boxHorizontal), innerWidth))
	}
	result.WriteRune(boxTopRight)
	result.WriteString("\n")

	for _, line := range lines {
		result.WriteRune(boxVertical)
		result.WriteString(" ")
		result.WriteString(padOrTruncate(line, innerWidth-2))
		result.WriteString(" ")
		result.WriteRune(boxVertical)
		result.WriteString("\n")
	}

	result.WriteRune(boxBottomLeft)
	result.WriteString(strings.Repeat(string(boxHorizontal), innerWidth))
	result.WriteRune(boxBottomRight)

	return result.String()
}

// padOrTruncate pads or truncates a line to exactly the given visible
// width, counting display cells rather than bytes so styled content
// lines up.
func padOrTruncate(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return truncateToWidth(s, width)
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncateToWidth truncates a string to at most width visible
// characters, passing ANSI escape sequences through uncounted.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}

	var result strings.Builder
	visibleCount := 0
	inEscape := false

	for _, r := range s {
		if inEscape {
			result.WriteRune(r)
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '~' {
				inEscape = false
			}
			continue
		}
		if r == '\x1b' {
			inEscape = true
			result.WriteRune(r)
			continue
		}
		if visibleCount >= width {
			break
		}
		result.WriteRune(r)
		visibleCount++
	}

	return result.String()
}
