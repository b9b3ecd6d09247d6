// cpu-tracker publishes this host's CPU usage into a shared datasites
// tree and folds every peer's published reading into a network mean.
//
// Each peer writes its own reading to a well-known path under the
// shared root. The tracker reads all of them, keeps the readings that
// are fresh within the staleness window, and publishes the mean along
// with a bounded history to its own public directory. Display modes
// render those same files as a one-shot status card or a live TUI.
//
// Usage:
//
//	cpu-tracker [flags]
//
// Flags:
//
//	-once             Run one aggregation cycle and exit
//	-daemon           Run the aggregation loop in the foreground
//	-banner           Display the network status card
//	-tui              Launch the interactive Bubbletea dashboard
//	-health           Check daemon health status
//	-diagnose         Inspect configuration, peers, and data files
//	-keys             Show all registered keybindings
//	-config string    Path to configuration file (default: ~/.config/cpu-tracker/config.yaml)
//	-man              Print man page to stdout in roff format
//	-verbose          Enable verbose logging
//	-version          Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/OpenMined/cpu-tracker-leader/config"
	"github.com/OpenMined/cpu-tracker-leader/display/banner"
	"github.com/OpenMined/cpu-tracker-leader/display/color"
	"github.com/OpenMined/cpu-tracker-leader/display/tui"
	"github.com/OpenMined/cpu-tracker-leader/docs/manpage"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file (default: ~/.config/cpu-tracker/config.yaml)")
		runOnce     = flag.Bool("once", false, "Run one aggregation cycle and exit")
		runDaemon   = flag.Bool("daemon", false, "Run the aggregation loop in the foreground")
		runBanner   = flag.Bool("banner", false, "Display the network status card")
		runTUI      = flag.Bool("tui", false, "Launch the interactive Bubbletea dashboard")
		runHealth   = flag.Bool("health", false, "Check daemon health status")
		healthJSON  = flag.Bool("json", false, "Output health check as JSON (with -health)")
		runDiagnose = flag.Bool("diagnose", false, "Inspect configuration, peers, and data files")
		showKeys    = flag.Bool("keys", false, "Show all registered keybindings")
		keysFormat  = flag.String("format", "table", "Output format for -keys (table|json)")
		showMan     = flag.Bool("man", false, "Print man page to stdout in roff format")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
		termWidth   = flag.Int("term-width", 0, "Terminal width override (0 = auto-detect)")
	)
	flag.Parse()

	// ---------------------------------------------------------------
	// Commands that don't require config
	// ---------------------------------------------------------------

	if *showVersion {
		fmt.Printf("cpu-tracker %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if *showMan {
		fmt.Print(manpage.Generate(version, commit, date))
		os.Exit(0)
	}

	if *showKeys {
		runKeysCommand(*keysFormat)
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Load configuration (required for remaining modes)
	// ---------------------------------------------------------------

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config.LoadDotEnv(logger)

	path := *configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// ---------------------------------------------------------------
	// Diagnostics
	// ---------------------------------------------------------------

	if *runDiagnose {
		runDiagnostics(cfg, path)
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Health check
	// ---------------------------------------------------------------

	if *runHealth {
		runDir, err := runtimeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(checkHealth(runDir, cfg.PollEvery(), *healthJSON))
	}

	// ---------------------------------------------------------------
	// Context with signal handling
	// ---------------------------------------------------------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// ---------------------------------------------------------------
	// Banner mode
	// ---------------------------------------------------------------

	if *runBanner {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "cpu-tracker: banner panic: %v\n", r)
				os.Exit(1)
			}
		}()

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
		color.Apply()

		b := banner.NewBanner(banner.BannerConfig{
			Root:        cfg.Root,
			Datasite:    cfg.Datasite,
			Window:      cfg.StaleWindow(),
			HistoryPath: cfg.HistoryPath(),
			TermWidth:   *termWidth,
			Logger:      logger,
		})
		result, err := b.Generate(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "banner render failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(result)
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// TUI mode
	// ---------------------------------------------------------------

	if *runTUI {
		defer func() {
			if r := recover(); r != nil {
				// Attempt to restore terminal from alt-screen before printing error.
				fmt.Print("\x1b[?1049l\x1b[?25h")
				fmt.Fprintf(os.Stderr, "cpu-tracker: TUI panic: %v\n", r)
				os.Exit(1)
			}
		}()

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
		color.Apply()

		model := tui.NewModel(tui.Options{
			Root:        cfg.Root,
			Datasite:    cfg.Datasite,
			Window:      cfg.StaleWindow(),
			HistoryPath: cfg.HistoryPath(),
		})
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Cycle modes: -once and -daemon
	// ---------------------------------------------------------------

	if *runOnce || *runDaemon {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}

		logger = cycleLogger(cfg, level, logger)

		t, err := newTracker(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tracker init failed: %v\n", err)
			os.Exit(1)
		}

		if *runOnce {
			if err := t.runOnce(ctx); err != nil {
				logger.Error("cycle failed", "error", err)
				fmt.Fprintf(os.Stderr, "cycle failed: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}

		fmt.Fprintf(os.Stderr, "starting cpu-tracker daemon v%s\n", version)
		if err := t.run(ctx); err != nil && err != context.Canceled {
			fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Default: print usage
	// ---------------------------------------------------------------

	fmt.Printf("cpu-tracker v%s (%s) built %s\n", version, commit, date)
	fmt.Println()
	fmt.Println("Usage: cpu-tracker [flags]")
	fmt.Println()
	flag.PrintDefaults()
}

// cycleLogger redirects cycle-mode logging to the configured log file.
// An empty log_file, or one that cannot be opened, falls back to stderr.
func cycleLogger(cfg *config.Config, level slog.Level, fallback *slog.Logger) *slog.Logger {
	if cfg.Daemon.LogFile == "" {
		return fallback
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.LogFile), 0o755); err != nil {
		fallback.Warn("cannot create log directory, logging to stderr", "path", cfg.Daemon.LogFile, "error", err)
		return fallback
	}
	f, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fallback.Warn("cannot open log file, logging to stderr", "path", cfg.Daemon.LogFile, "error", err)
		return fallback
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
}
