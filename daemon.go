package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/config"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/publish"
	"github.com/OpenMined/cpu-tracker-leader/sampler"
)

// tracker drives the aggregation cycle: publish our own CPU reading,
// read every peer's, fold the fresh ones into a mean, and append it to
// the published history. It runs the same cycle whether invoked once
// from cron or looping in daemon mode.
type tracker struct {
	config  *config.Config
	logger  *slog.Logger
	sampler *sampler.Sampler
	store   *history.Store
	agg     *peernet.Aggregator
	runDir  string
	pidFile string
}

// runtimeDir returns the directory for the PID and health files,
// creating it if needed.
func runtimeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".cache", "cpu-tracker")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create runtime directory: %w", err)
	}
	return dir, nil
}

// newTracker wires a tracker from the configuration.
func newTracker(cfg *config.Config, logger *slog.Logger) (*tracker, error) {
	runDir, err := runtimeDir()
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	s := sampler.New()
	s.Logger = logger

	return &tracker{
		config:  cfg,
		logger:  logger,
		sampler: s,
		store: &history.Store{
			Path:     cfg.HistoryPath(),
			MaxItems: cfg.Tracker.MaxItems,
			Logger:   logger,
		},
		agg: &peernet.Aggregator{
			Root:   cfg.Root,
			Window: cfg.StaleWindow(),
			Logger: logger,
		},
		runDir:  runDir,
		pidFile: filepath.Join(runDir, "cpu-tracker.pid"),
	}, nil
}

// writePIDFile writes the current process PID to the PID file.
func (t *tracker) writePIDFile() error {
	pid := os.Getpid()
	if err := os.WriteFile(t.pidFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	t.logger.Info("wrote PID file", "path", t.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file on shutdown.
func (t *tracker) removePIDFile() {
	if err := os.Remove(t.pidFile); err != nil && !os.IsNotExist(err) {
		t.logger.Error("failed to remove PID file", "path", t.pidFile, "error", err)
		return
	}
	t.logger.Info("removed PID file", "path", t.pidFile)
}

// isRunning checks if another daemon instance is already running by
// reading the PID file and probing the process. A stale PID file
// (process gone) is cleaned up.
func (t *tracker) isRunning() (bool, int) {
	data, err := os.ReadFile(t.pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.logger.Warn("corrupt PID file, removing", "path", t.pidFile, "content", string(data))
		os.Remove(t.pidFile)
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		// On Unix, FindProcess never returns an error, but handle it anyway.
		os.Remove(t.pidFile)
		return false, 0
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		t.logger.Warn("stale PID file, removing", "path", t.pidFile, "pid", pid)
		os.Remove(t.pidFile)
		return false, 0
	}

	return true, pid
}

// run starts the daemon loop. It claims the PID file, runs an immediate
// cycle, then ticks at the configured poll interval until the context
// is cancelled.
func (t *tracker) run(ctx context.Context) error {
	if running, pid := t.isRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}

	if err := t.writePIDFile(); err != nil {
		return err
	}
	defer t.removePIDFile()

	interval := t.config.PollEvery()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Info("daemon started",
		"datasite", t.config.Datasite,
		"root", t.config.Root,
		"poll_interval", interval.String(),
	)

	if err := t.runOnce(ctx); err != nil {
		t.logger.Error("initial cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("daemon shutting down gracefully")
			t.shutdown()
			return ctx.Err()
		case <-ticker.C:
			if err := t.runOnce(ctx); err != nil {
				t.logger.Error("cycle failed", "error", err)
			}
		}
	}
}

// runOnce performs one aggregation cycle. Soft steps (assets, own
// sample, health file) log and continue; a root enumeration or history
// persistence failure aborts the cycle with the previous history
// intact, to be retried on the next tick.
func (t *tracker) runOnce(ctx context.Context) error {
	start := time.Now()
	t.logger.Debug("starting cycle")

	if err := publish.Assets(t.config.PublicDir(), t.config.Tracker.AssetsDir, t.logger); err != nil {
		t.logger.Warn("asset publish failed", "error", err)
	}

	if _, err := t.sampler.Publish(ctx, t.config.OwnTrackerPath()); err != nil {
		t.logger.Warn("own sample failed, peers will see our previous reading", "error", err)
	}

	res, err := t.agg.Aggregate()
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	f, err := t.store.Append(res.Mean, res.Contributors())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	fresh := len(res.Contributors())
	if err := writeHealthFile(t.runDir, HealthStatus{
		Status:     "ok",
		LastCycle:  time.Now().UTC(),
		Mean:       res.Mean,
		PeersFresh: fresh,
		PeersSeen:  len(res.Reports),
		Samples:    len(f.Items),
	}); err != nil {
		t.logger.Error("health file write failed", "error", err)
	}

	t.logger.Info("cycle complete",
		"mean", fmt.Sprintf("%.1f", res.Mean),
		"peers_fresh", fresh,
		"peers_seen", len(res.Reports),
		"samples", len(f.Items),
		"duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
	)

	return nil
}

// shutdown logs the final history state on daemon exit.
func (t *tracker) shutdown() {
	t.logger.Info("performing shutdown cleanup")
	if f, err := t.store.Load(); err == nil && len(f.Items) > 0 {
		last := f.Items[len(f.Items)-1]
		t.logger.Info("history at shutdown",
			"samples", len(f.Items),
			"last_mean", last.CPU,
			"last_at", last.Timestamp,
		)
	}
}
