package manpage

import (
	"strings"
	"testing"
)

func TestGenerate_ValidRoff(t *testing.T) {
	page := Generate("0.1.0", "abc1234", "2026-08-25")

	// Must start with .TH header.
	if !strings.HasPrefix(page, ".TH CPU-TRACKER 1") {
		t.Errorf("man page should start with .TH header, got: %s", page[:80])
	}

	// Must contain all required sections.
	requiredSections := []string{
		".SH NAME",
		".SH SYNOPSIS",
		".SH DESCRIPTION",
		".SH OPTIONS",
		".SH KEYBINDINGS",
		".SH CONFIGURATION",
		".SH FILES",
		".SH EXAMPLES",
		".SH ENVIRONMENT",
		".SH EXIT STATUS",
		".SH SEE ALSO",
		".SH AUTHORS",
		".SH BUGS",
		".SH VERSION",
	}

	for _, section := range requiredSections {
		if !strings.Contains(page, section) {
			t.Errorf("man page missing required section: %s", section)
		}
	}
}

func TestGenerate_ContainsVersion(t *testing.T) {
	page := Generate("1.2.3", "deadbeef", "2026-08-25")

	if !strings.Contains(page, "1.2.3") {
		t.Error("man page should contain the version string")
	}
	if !strings.Contains(page, "deadbeef") {
		t.Error("man page should contain the commit hash")
	}
}

func TestGenerate_ContainsAllFlags(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	expectedFlags := []string{
		"once",
		"daemon",
		"banner",
		"tui",
		"health",
		"json",
		"diagnose",
		"keys",
		"format",
		"config",
		"term\\-width",
		"verbose",
		"version",
		"man",
	}

	for _, flag := range expectedFlags {
		if !strings.Contains(page, flag) {
			t.Errorf("man page missing flag: -%s", flag)
		}
	}
}

func TestGenerate_ContainsKeybindings(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	// Dashboard keybindings from the KeyRegistry.
	expectedKeys := []string{
		"next tab",
		"prev tab",
		"network",
		"history",
		"refresh",
		"help",
		"quit",
	}

	for _, key := range expectedKeys {
		if !strings.Contains(page, key) {
			t.Errorf("man page missing keybinding description: %q", key)
		}
	}
}

func TestGenerate_ContainsCategoryGroups(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	for _, group := range []string{"Navigation", "Data", "System"} {
		if !strings.Contains(page, ".SS "+group) {
			t.Errorf("man page missing keybinding group: %s", group)
		}
	}
}

func TestGenerate_ContainsConfigSettings(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	expectedSettings := []string{
		"datasite",
		"root",
		"max_items",
		"stale_after",
		"assets_dir",
		"poll_interval",
		"log_file",
	}

	for _, setting := range expectedSettings {
		if !strings.Contains(page, setting) {
			t.Errorf("man page missing config setting: %s", setting)
		}
	}
}

func TestGenerate_ContainsFilePaths(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	expectedPaths := []string{
		"config.yaml",
		"health.json",
		"cpu\\-tracker.pid",
		"cpu\\-tracker.log",
		"cpu_tracker.json",
	}

	for _, path := range expectedPaths {
		if !strings.Contains(page, path) {
			t.Errorf("man page missing file path: %s", path)
		}
	}
}

func TestGenerate_ContainsEnvironmentVars(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	expectedVars := []string{
		"CPU_TRACKER_CONFIG",
		"CPU_TRACKER_ROOT",
		"CPU_TRACKER_DATASITE",
	}

	for _, envVar := range expectedVars {
		if !strings.Contains(page, envVar) {
			t.Errorf("man page missing environment variable: %s", envVar)
		}
	}
}

func TestGenerate_NoEmptyOutput(t *testing.T) {
	page := Generate("0.1.0", "dev", "unknown")

	if len(page) < 1000 {
		t.Errorf("man page seems too short: %d bytes", len(page))
	}
}

func TestRoffEscape(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"ctrl-p", `ctrl\-p`},
		{"e.g.", `e\&.g\&.`},
		{`foo\bar`, `foo\\bar`},
	}

	for _, tt := range tests {
		got := roffEscape(tt.input)
		if got != tt.expected {
			t.Errorf("roffEscape(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
