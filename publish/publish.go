// Package publish installs the dashboard pages into the datasite's
// public folder, next to the history file they render.
package publish

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed assets/*.html
var embedded embed.FS

// Assets installs the dashboard pages into dst. The pages ship embedded
// in the binary; srcDir, when set, overrides them with .html files from
// disk. Files whose content already matches are not rewritten, so the
// sync layer sees no churn from repeated cycles, and one broken page
// does not block the rest.
func Assets(dst, srcDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("publish: create %s: %w", dst, err)
	}
	if srcDir != "" {
		return fromDir(dst, srcDir, logger)
	}
	return fromEmbedded(dst, logger)
}

func fromEmbedded(dst string, logger *slog.Logger) error {
	entries, err := fs.ReadDir(embedded, "assets")
	if err != nil {
		return fmt.Errorf("publish: embedded assets: %w", err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(embedded, "assets/"+e.Name())
		if err != nil {
			logger.Warn("asset read failed", "file", e.Name(), "error", err)
			continue
		}
		install(dst, e.Name(), data, logger)
	}
	return nil
}

func fromDir(dst, srcDir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("publish: read assets dir %s: %w", srcDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(srcDir, e.Name()))
		if err != nil {
			logger.Warn("asset read failed", "file", e.Name(), "error", err)
			continue
		}
		install(dst, e.Name(), data, logger)
	}
	return nil
}

func install(dst, name string, data []byte, logger *slog.Logger) {
	target := filepath.Join(dst, name)
	if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, data) {
		return
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		logger.Warn("asset install failed", "file", name, "error", err)
		return
	}
	logger.Debug("asset installed", "file", name)
}
