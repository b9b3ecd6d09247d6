package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/config"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/status"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// runDiagnostics inspects the configuration and every file the tracker
// reads or writes, providing actionable feedback for users.
func runDiagnostics(cfg *config.Config, configPath string) {
	fmt.Println("🔍 CPU Tracker Diagnostics")
	fmt.Println("============================================================")
	fmt.Println()

	// Configuration
	fmt.Printf("📁 Config file: %s\n", configPath)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Println("   ⚠️  File not found, using defaults")
	} else {
		fmt.Println("   ✅ File exists")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("   ❌ Invalid: %v\n", err)
		fmt.Println()
		fmt.Printf("💡 Solution: fix the config file or set %s and %s\n", config.EnvDatasite, config.EnvRoot)
		return
	}
	fmt.Println("   ✅ Valid")
	fmt.Printf("   Datasite: %s\n", cfg.Datasite)
	fmt.Println()

	// Datasites root
	fmt.Println("🌐 Datasites Root")
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("   Path: %s\n", cfg.Root)

	peers, err := peernet.Enumerate(cfg.Root)
	if err != nil {
		fmt.Printf("   ❌ Unreadable: %v\n", err)
		fmt.Println()
		fmt.Println("💡 Solution: check that the SyftBox client is running and syncing this path")
		return
	}
	fmt.Printf("   ✅ Readable (%d peer directories)\n", len(peers))
	fmt.Println()

	// Own tracker file
	fmt.Println("📤 Own Tracker File")
	fmt.Println("------------------------------------------------------------")
	ownPath := cfg.OwnTrackerPath()
	fmt.Printf("   Path: %s\n", ownPath)

	var own *telemetry.Record
	data, err := os.ReadFile(ownPath)
	switch {
	case os.IsNotExist(err):
		fmt.Println("   ⚠️  Not published yet")
		fmt.Println()
		fmt.Println("💡 Solution: run 'cpu-tracker -once' or start the daemon")
	case err != nil:
		fmt.Printf("   ❌ Unreadable: %v\n", err)
	default:
		var rec telemetry.Record
		if jsonErr := json.Unmarshal(data, &rec); jsonErr != nil {
			fmt.Printf("   ❌ Malformed JSON: %v\n", jsonErr)
		} else if ts, tsErr := telemetry.ParseTime(rec.Timestamp); tsErr != nil {
			fmt.Printf("   ❌ Malformed timestamp: %q\n", rec.Timestamp)
		} else {
			own = &rec
			fresh, _ := telemetry.FreshAt(rec.Timestamp, time.Now(), cfg.StaleWindow())
			if fresh {
				fmt.Printf("   ✅ Fresh (%.1f%% CPU, published %s)\n", rec.CPU, format.Age(time.Since(ts)))
			} else {
				fmt.Printf("   ⚠️  Stale (%.1f%% CPU, published %s)\n", rec.CPU, format.Age(time.Since(ts)))
				fmt.Println()
				fmt.Println("💡 Solution: the daemon may have stopped; restart it with 'cpu-tracker -daemon'")
			}
		}
	}
	fmt.Println()

	// Published history
	fmt.Println("📜 Published History")
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("   Path: %s\n", cfg.HistoryPath())

	store := &history.Store{Path: cfg.HistoryPath()}
	hist, histErr := store.Load()
	switch {
	case errors.Is(histErr, history.ErrCorrupt):
		fmt.Printf("   ❌ Corrupt: %v\n", histErr)
		fmt.Println()
		fmt.Println("💡 Solution: move the file aside; the next cycle starts a fresh history")
	case histErr != nil:
		fmt.Printf("   ❌ Unreadable: %v\n", histErr)
	case len(hist.Items) == 0:
		fmt.Println("   ⚠️  No samples yet")
	default:
		fmt.Printf("   ✅ %d samples (max %d)\n", len(hist.Items), cfg.Tracker.MaxItems)
		if ts, err := telemetry.ParseTime(hist.Items[len(hist.Items)-1].Timestamp); err == nil {
			fmt.Printf("   Latest: %s\n", format.Age(time.Since(ts)))
		}
		fmt.Printf("   Last run peers: %d\n", len(hist.Peers))
	}
	fmt.Println()

	// Daemon health
	fmt.Println("💓 Daemon Health")
	fmt.Println("------------------------------------------------------------")
	if runDir, err := runtimeDir(); err != nil {
		fmt.Printf("   ❌ Runtime directory: %v\n", err)
	} else if hs, err := readHealthFile(runDir); err != nil {
		fmt.Println("   ⚠️  No health file, daemon has not run")
		fmt.Println()
		fmt.Println("💡 Solution: start the daemon with 'cpu-tracker -daemon'")
	} else {
		age := time.Since(hs.LastCycle)
		if age > 2*cfg.PollEvery() {
			fmt.Printf("   ⚠️  Stale (last cycle %s)\n", format.Age(age))
		} else {
			fmt.Printf("   ✅ Healthy (last cycle %s)\n", format.Age(age))
		}
	}
	fmt.Println()

	// Component status
	fmt.Println("📊 Component Status")
	fmt.Println("------------------------------------------------------------")

	var net *peernet.Result
	agg := &peernet.Aggregator{Root: cfg.Root, Window: cfg.StaleWindow()}
	if res, err := agg.Aggregate(); err == nil {
		net = &res
	}
	var histPtr *history.File
	if histErr == nil {
		histPtr = &hist
	}

	eval := status.NewEvaluator(status.EvaluatorConfig{
		SampleFreshFor: cfg.StaleWindow(),
	})
	sys := eval.Evaluate(own, net, histPtr)
	for _, comp := range sys.Components {
		fmt.Printf("   %s %-8s %s\n", levelIcon(comp.Level), comp.Component, comp.Reason)
	}
	fmt.Println()

	if sys.Overall == status.LevelHealthy {
		fmt.Println("✨ All diagnostics passed! The tracker is publishing and aggregating.")
	} else {
		fmt.Printf("Overall: %s %s\n", levelIcon(sys.Overall), sys.Overall)
	}
}

// levelIcon maps a status level to a diagnostic marker.
func levelIcon(l status.Level) string {
	switch l {
	case status.LevelHealthy:
		return "✅"
	case status.LevelWarning:
		return "⚠️ "
	case status.LevelCritical:
		return "❌"
	default:
		return "❓"
	}
}
