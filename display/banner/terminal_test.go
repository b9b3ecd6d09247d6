package banner

import (
	"os"
	"testing"
)

func TestDetectWidth_Defaults(t *testing.T) {
	os.Unsetenv("COLUMNS")

	// Always positive, whether detected from a TTY or defaulted.
	if w := DetectWidth(); w <= 0 {
		t.Errorf("width should be positive, got %d", w)
	}
}

func TestDetectWidth_EnvVariable(t *testing.T) {
	t.Setenv("COLUMNS", "120")

	// Only effective when TTY detection fails, so just check sanity.
	if w := DetectWidth(); w <= 0 {
		t.Errorf("width should be positive, got %d", w)
	}
}

func TestDetectWidth_InvalidEnv(t *testing.T) {
	t.Setenv("COLUMNS", "invalid")

	if w := DetectWidth(); w <= 0 {
		t.Errorf("width should be positive even with invalid env, got %d", w)
	}
}
