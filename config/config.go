// Package config provides configuration parsing for cpu-tracker.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// Environment variables that override file settings. They exist so the
// sync runner can point one binary at different datasite roots without
// editing config files.
const (
	EnvRoot     = "CPU_TRACKER_ROOT"
	EnvDatasite = "CPU_TRACKER_DATASITE"
	// EnvConfig overrides the config file location. The -config flag
	// wins over it.
	EnvConfig = "CPU_TRACKER_CONFIG"
)

// Config represents the cpu-tracker configuration.
type Config struct {
	// Datasite is this host's datasite identity, usually an email
	// address. It names the directory the tracker publishes into.
	Datasite string `yaml:"datasite"`

	// Root is the shared datasites directory containing one
	// subdirectory per peer.
	Root string `yaml:"root"`

	// Tracker holds aggregation and publishing settings.
	Tracker TrackerConfig `yaml:"tracker"`

	// Daemon holds daemon-level settings.
	Daemon DaemonConfig `yaml:"daemon"`
}

// TrackerConfig holds aggregation and publishing settings.
type TrackerConfig struct {
	// MaxItems caps the rolling history length.
	MaxItems int `yaml:"max_items"`
	// StaleAfter is a duration string (e.g. "1m") after which a peer
	// reading no longer counts toward the mean.
	StaleAfter string `yaml:"stale_after"`
	// AssetsDir optionally overrides the embedded dashboard pages with
	// .html files from this directory.
	AssetsDir string `yaml:"assets_dir"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	// PollInterval is a duration string (e.g. "10s") between cycles.
	PollInterval string `yaml:"poll_interval"`
	// LogFile is the path for daemon log output.
	LogFile string `yaml:"log_file"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Datasite: "",
		Root:     filepath.Join(home, "SyftBox", "datasites"),
		Tracker: TrackerConfig{
			MaxItems:   360,
			StaleAfter: "1m",
			AssetsDir:  "",
		},
		Daemon: DaemonConfig{
			PollInterval: "10s",
			LogFile:      filepath.Join(home, ".local", "log", "cpu-tracker.log"),
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cpu-tracker", "config.yaml")
}

// LoadConfig loads configuration from a YAML file, merging with
// defaults and applying environment overrides last.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		applyEnv(config)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(config)
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	applyEnv(config)
	return config, nil
}

// LoadDotEnv loads a .env file from the working directory when one
// exists. Variables already set in the environment win over .env
// values.
func LoadDotEnv(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("dotenv load failed", "error", err)
		}
		return
	}
	logger.Debug("dotenv loaded")
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvDatasite); v != "" {
		c.Datasite = v
	}
}

// Validate checks the configuration for required fields and logical
// consistency.
func (c *Config) Validate() error {
	if c.Datasite == "" {
		return fmt.Errorf("datasite is required (set it in the config file or %s)", EnvDatasite)
	}
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if c.Tracker.MaxItems <= 0 {
		return fmt.Errorf("tracker.max_items must be positive, got %d", c.Tracker.MaxItems)
	}
	if d, err := time.ParseDuration(c.Tracker.StaleAfter); err != nil || d <= 0 {
		return fmt.Errorf("tracker.stale_after must be a positive duration, got %q", c.Tracker.StaleAfter)
	}
	if d, err := time.ParseDuration(c.Daemon.PollInterval); err != nil || d <= 0 {
		return fmt.Errorf("daemon.poll_interval must be a positive duration, got %q", c.Daemon.PollInterval)
	}
	return nil
}

// PollEvery returns the cycle interval, falling back to the default
// when the configured string does not parse.
func (c *Config) PollEvery() time.Duration {
	d, err := time.ParseDuration(c.Daemon.PollInterval)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StaleWindow returns the freshness window, falling back to the default
// when the configured string does not parse.
func (c *Config) StaleWindow() time.Duration {
	d, err := time.ParseDuration(c.Tracker.StaleAfter)
	if err != nil || d <= 0 {
		return telemetry.DefaultFreshFor
	}
	return d
}

// DatasiteDir returns this host's own datasite directory.
func (c *Config) DatasiteDir() string {
	return filepath.Join(c.Root, c.Datasite)
}

// PublicDir returns the public folder this host publishes into.
func (c *Config) PublicDir() string {
	return filepath.Join(c.Root, c.Datasite, "public")
}

// HistoryPath returns the published history file location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.PublicDir(), "cpu_tracker.json")
}

// OwnTrackerPath returns where this host publishes its own reading.
func (c *Config) OwnTrackerPath() string {
	return telemetry.TrackerPath(c.Root, c.Datasite)
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
