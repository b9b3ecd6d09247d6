// Package color centralizes color profile detection for the tracker's
// display surfaces.
//
// It implements the NO_COLOR convention (https://no-color.org/) and
// pipe/redirect detection. When color is disabled, lipgloss is set to
// the Ascii profile so the banner and TUI render plain text.
package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ShouldDisableColor reports whether color output should be suppressed:
// either NO_COLOR is set (any value counts, even empty) or stdout is
// not a terminal.
func ShouldDisableColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return true
	}

	return false
}

// Apply configures the global lipgloss renderer from
// ShouldDisableColor. Call it once before rendering the banner or
// starting the TUI. Returns true if color stays enabled.
func Apply() bool {
	if ShouldDisableColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return false
	}
	return true
}

// ForceDisable unconditionally sets the Ascii profile. Tests use this
// to get deterministic plain-text renders.
func ForceDisable() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StripANSI removes ANSI escape sequences from a string, as a safety
// net for output that bypasses lipgloss.
func StripANSI(s string) string {
	var result []byte
	inEscape := false
	for i := 0; i < len(s); i++ {
		if inEscape {
			if (s[i] >= 'a' && s[i] <= 'z') || (s[i] >= 'A' && s[i] <= 'Z') || s[i] == '~' {
				inEscape = false
			}
			continue
		}
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}
