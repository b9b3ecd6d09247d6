package banner

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
)

// DetectWidth returns the terminal width in columns. It attempts TTY
// detection first via the term package, then falls back to the COLUMNS
// environment variable, and finally to 80 columns.
func DetectWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return w
		}
	}

	return 80
}
