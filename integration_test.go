package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/config"
	"github.com/OpenMined/cpu-tracker-leader/display/banner"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/status"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// testLogger returns a quiet logger for test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTrackerConfig writes a minimal valid config.yaml to dir and
// returns its path. The datasites root goes under dir as well.
func writeTrackerConfig(t *testing.T, dir string) string {
	t.Helper()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`datasite: alice@example.com
root: %q
tracker:
  max_items: 360
  stale_after: "1m"
daemon:
  poll_interval: "10s"
  log_file: %q
`, filepath.Join(dir, "datasites"), filepath.Join(dir, "cpu-tracker.log"))
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return cfgPath
}

// blockOwnSample occupies the tracker's own publish path with a
// directory. The publish step fails softly and the host drops out of
// its own aggregate, which makes peer-only means deterministic.
func blockOwnSample(t *testing.T, tr *tracker) {
	t.Helper()
	if err := os.MkdirAll(tr.config.OwnTrackerPath(), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Integration tests
// ---------------------------------------------------------------------------

// TestIntegration_FullPipeline tests the complete pipeline:
// config file -> tracker cycle -> published history -> banner -> status.
func TestIntegration_FullPipeline(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvDatasite, "")

	// Step 1: Write a minimal config and load it.
	cfgPath := writeTrackerConfig(t, tmpDir)
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Step 2: Build the tracker the way the daemon mode does.
	tr, err := newTracker(cfg, testLogger())
	if err != nil {
		t.Fatalf("newTracker: %v", err)
	}

	// Step 3: Seed two peers and run one cycle. The cycle publishes our
	// own reading first, so three hosts contribute.
	seedPeer(t, cfg.Root, "bob@example.com", 30)
	seedPeer(t, cfg.Root, "carol@example.com", 60)
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	f, err := tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 1 {
		t.Fatalf("history has %d items, want 1", len(f.Items))
	}
	if len(f.Peers) != 3 {
		t.Fatalf("peers = %v, want 3 contributors", f.Peers)
	}

	// Step 4: The banner renders from the published artifacts.
	b := banner.NewBanner(banner.BannerConfig{
		Root:        cfg.Root,
		Datasite:    cfg.Datasite,
		Window:      cfg.StaleWindow(),
		HistoryPath: cfg.HistoryPath(),
		Hostname:    "pipeline-host",
		TermWidth:   80,
		Logger:      testLogger(),
	})
	output, err := b.Generate(context.Background())
	if err != nil {
		t.Fatalf("Banner.Generate: %v", err)
	}
	if !strings.Contains(output, "pipeline-host") {
		t.Error("banner output missing hostname 'pipeline-host'")
	}
	if !strings.Contains(output, "3 fresh / 3 seen") {
		t.Errorf("banner should report 3 fresh peers:\n%s", output)
	}

	// Step 5: Status evaluation over the same artifacts reports healthy.
	data, err := os.ReadFile(cfg.OwnTrackerPath())
	if err != nil {
		t.Fatalf("read own tracker file: %v", err)
	}
	var own telemetry.Record
	if err := json.Unmarshal(data, &own); err != nil {
		t.Fatalf("unmarshal own record: %v", err)
	}

	agg := &peernet.Aggregator{Root: cfg.Root, Window: cfg.StaleWindow(), Logger: testLogger()}
	res, err := agg.Aggregate()
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	evaluator := status.NewEvaluator(status.DefaultEvaluatorConfig())
	sysStatus := evaluator.Evaluate(&own, &res, &f)
	if sysStatus.Overall != status.LevelHealthy {
		t.Errorf("status.Overall = %v, want Healthy; components = %+v",
			sysStatus.Overall, sysStatus.Components)
	}
}

// TestIntegration_RollingWindow tests that the history file keeps the
// newest max_items samples in arrival order across many cycles.
func TestIntegration_RollingWindow(t *testing.T) {
	tr, root := newTestTracker(t)
	tr.config.Tracker.MaxItems = 3
	tr.store.MaxItems = 3
	blockOwnSample(t, tr)

	// Four cycles with a single peer driving the mean to 10, 20, 30, 40.
	for _, cpu := range []float64{10, 20, 30, 40} {
		seedPeer(t, root, "bob@example.com", cpu)
		if err := tr.runOnce(context.Background()); err != nil {
			t.Fatalf("runOnce(cpu=%v): %v", cpu, err)
		}
	}

	f, err := tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 3 {
		t.Fatalf("history has %d items, want 3 after trimming", len(f.Items))
	}
	for i, want := range []float64{20, 30, 40} {
		if f.Items[i].CPU != want {
			t.Errorf("items[%d].CPU = %v, want %v", i, f.Items[i].CPU, want)
		}
		if _, err := telemetry.ParseTime(f.Items[i].Timestamp); err != nil {
			t.Errorf("items[%d].Timestamp = %q does not parse: %v", i, f.Items[i].Timestamp, err)
		}
	}
	if len(f.Peers) != 1 || f.Peers[0] != "bob@example.com" {
		t.Errorf("peers = %v, want [bob@example.com]", f.Peers)
	}
}

// TestIntegration_PeersTrackLatestRun tests that the peers list is
// replaced wholesale each cycle while items accumulate.
func TestIntegration_PeersTrackLatestRun(t *testing.T) {
	tr, root := newTestTracker(t)
	blockOwnSample(t, tr)

	seedPeer(t, root, "bob@example.com", 20)
	seedPeer(t, root, "carol@example.com", 40)
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (cycle 1): %v", err)
	}

	f, err := tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Peers) != 2 {
		t.Fatalf("peers after cycle 1 = %v, want 2", f.Peers)
	}

	// Carol's reading disappears before the second cycle. Her directory
	// is still enumerated but no longer contributes.
	if err := os.Remove(telemetry.TrackerPath(root, "carol@example.com")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (cycle 2): %v", err)
	}

	f, err = tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 2 {
		t.Errorf("history has %d items, want 2", len(f.Items))
	}
	if len(f.Peers) != 1 || f.Peers[0] != "bob@example.com" {
		t.Errorf("peers after cycle 2 = %v, want [bob@example.com]", f.Peers)
	}
}

// TestIntegration_SentinelRecovery tests that a no-data cycle records
// the -1 sentinel and a later cycle resumes with real means.
func TestIntegration_SentinelRecovery(t *testing.T) {
	tr, root := newTestTracker(t)
	blockOwnSample(t, tr)

	// The only peer reading is past the freshness window.
	stale := telemetry.NewRecord(25, time.Now().Add(-2*time.Minute))
	if err := telemetry.WriteRecord(telemetry.TrackerPath(root, "bob@example.com"), stale); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (stale cycle): %v", err)
	}

	// Bob comes back with a fresh reading.
	seedPeer(t, root, "bob@example.com", 50)
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (recovery cycle): %v", err)
	}

	f, err := tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 2 {
		t.Fatalf("history has %d items, want 2", len(f.Items))
	}
	if f.Items[0].CPU != -1 {
		t.Errorf("items[0].CPU = %v, want -1 sentinel", f.Items[0].CPU)
	}
	if f.Items[1].CPU != 50 {
		t.Errorf("items[1].CPU = %v, want 50", f.Items[1].CPU)
	}
	if len(f.Peers) != 1 || f.Peers[0] != "bob@example.com" {
		t.Errorf("peers = %v, want [bob@example.com]", f.Peers)
	}
}

// TestIntegration_CorruptHistoryMidStream tests that a history file
// corrupted between cycles stops the pipeline without being rewritten.
func TestIntegration_CorruptHistoryMidStream(t *testing.T) {
	tr, root := newTestTracker(t)
	blockOwnSample(t, tr)

	seedPeer(t, root, "bob@example.com", 10)
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (cycle 1): %v", err)
	}
	seedPeer(t, root, "bob@example.com", 20)
	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce (cycle 2): %v", err)
	}

	// Truncate the file mid-document, as a torn sync would.
	data, err := os.ReadFile(tr.store.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	torn := data[:len(data)/2]
	if err := os.WriteFile(tr.store.Path, torn, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seedPeer(t, root, "bob@example.com", 30)
	err = tr.runOnce(context.Background())
	if err == nil {
		t.Fatal("runOnce should fail on a corrupt history file")
	}
	if !errors.Is(err, history.ErrCorrupt) {
		t.Errorf("runOnce error = %v, want ErrCorrupt", err)
	}

	after, err := os.ReadFile(tr.store.Path)
	if err != nil {
		t.Fatalf("ReadFile after failed cycle: %v", err)
	}
	if string(after) != string(torn) {
		t.Error("corrupt history file was modified by the failed cycle")
	}
}

// TestIntegration_EmptyState tests that display and status degrade
// cleanly before the first cycle has ever run.
func TestIntegration_EmptyState(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "datasites")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	b := banner.NewBanner(banner.BannerConfig{
		Root:        root,
		Datasite:    "alice@example.com",
		Window:      time.Minute,
		HistoryPath: filepath.Join(root, "alice@example.com", "public", "cpu_tracker.json"),
		Hostname:    "empty-host",
		TermWidth:   80,
		Logger:      testLogger(),
	})
	output, err := b.Generate(context.Background())
	if err != nil {
		t.Fatalf("Banner.Generate: %v", err)
	}
	if !strings.Contains(output, "0 fresh / 0 seen") {
		t.Errorf("banner should report an empty network:\n%s", output)
	}
	if !strings.Contains(output, "no samples yet") {
		t.Errorf("banner should report an empty history:\n%s", output)
	}

	evaluator := status.NewEvaluator(status.DefaultEvaluatorConfig())
	sysStatus := evaluator.Evaluate(nil, nil, nil)
	if sysStatus.Overall != status.LevelUnknown {
		t.Errorf("status.Overall = %v, want Unknown for nil data", sysStatus.Overall)
	}
}

// TestIntegration_MixedPeerHealth tests one cycle over a root holding
// fresh, stale, and broken peers at once.
func TestIntegration_MixedPeerHealth(t *testing.T) {
	tr, root := newTestTracker(t)
	blockOwnSample(t, tr)

	seedPeer(t, root, "bob@example.com", 40)
	seedPeer(t, root, "carol@example.com", 80)

	stale := telemetry.NewRecord(99, time.Now().Add(-10*time.Minute))
	if err := telemetry.WriteRecord(telemetry.TrackerPath(root, "dave@example.com"), stale); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	brokenPath := telemetry.TrackerPath(root, "erin@example.com")
	if err := os.MkdirAll(filepath.Dir(brokenPath), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(brokenPath, []byte("not json at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := tr.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	f, err := tr.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 1 {
		t.Fatalf("history has %d items, want 1", len(f.Items))
	}
	if f.Items[0].CPU != 60.0 {
		t.Errorf("mean = %v, want 60.0 from the two fresh peers", f.Items[0].CPU)
	}
	if len(f.Peers) != 2 || f.Peers[0] != "bob@example.com" || f.Peers[1] != "carol@example.com" {
		t.Errorf("peers = %v, want [bob@example.com carol@example.com]", f.Peers)
	}

	// All five directories were seen: the host plus four peers.
	hs, err := readHealthFile(tr.runDir)
	if err != nil {
		t.Fatalf("readHealthFile: %v", err)
	}
	if hs.PeersSeen != 5 {
		t.Errorf("health PeersSeen = %d, want 5", hs.PeersSeen)
	}
	if hs.PeersFresh != 2 {
		t.Errorf("health PeersFresh = %d, want 2", hs.PeersFresh)
	}
}
