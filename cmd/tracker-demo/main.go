// Command tracker-demo builds a synthetic datasites root, runs real
// aggregation cycles over it, and renders the banner. It exists to
// exercise the display surfaces without a SyftBox network at hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/display/banner"
	"github.com/OpenMined/cpu-tracker-leader/display/color"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// demoDatasite is the identity the demo publishes its history under. It
// has no tracker file of its own, so the peer table always shows one
// missing-file entry, the same thing a freshly installed host looks like.
const demoDatasite = "demo@local"

func main() {
	termWidth := flag.Int("width", 80, "Terminal width for the banner")
	peers := flag.Int("peers", 4, "Number of fresh demo peers")
	stale := flag.Int("stale", 1, "Number of stale demo peers")
	broken := flag.Int("broken", 1, "Number of broken demo peers")
	cycles := flag.Int("cycles", 24, "Aggregation cycles to simulate")
	seed := flag.Int64("seed", 42, "Random seed for the peer load patterns")
	keep := flag.Bool("keep", false, "Keep the demo datasites root on exit")
	flag.Parse()

	color.Apply()

	root, err := os.MkdirTemp("", "cpu-tracker-demo-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create demo root: %v\n", err)
		os.Exit(1)
	}
	if *keep {
		fmt.Printf("Demo root: %s\n", root)
	} else {
		defer os.RemoveAll(root)
	}

	fmt.Println("=== cpu-tracker demo network ===")
	fmt.Printf("%d fresh, %d stale, %d broken peers, %d cycles\n\n",
		*peers, *stale, *broken, *cycles)

	rng := rand.New(rand.NewSource(*seed))

	seedStalePeers(root, *stale)
	seedBrokenPeers(root, *broken)

	// Each fresh peer's load follows a bounded random walk so the
	// history sparkline has some shape to show.
	loads := make([]float64, *peers)
	for i := range loads {
		loads[i] = 20 + rng.Float64()*60
	}

	store := &history.Store{
		Path: filepath.Join(root, demoDatasite, "public", "cpu_tracker.json"),
	}
	agg := &peernet.Aggregator{Root: root, Window: time.Minute}

	var last peernet.Result
	for c := 0; c < *cycles; c++ {
		for i := range loads {
			loads[i] += rng.Float64()*20 - 10
			if loads[i] < 2 {
				loads[i] = 2
			}
			if loads[i] > 98 {
				loads[i] = 98
			}
			publishPeer(root, fmt.Sprintf("node%02d@demo.net", i+1), loads[i])
		}

		res, err := agg.Aggregate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "aggregate: %v\n", err)
			os.Exit(1)
		}
		if _, err := store.Append(res.Mean, res.Contributors()); err != nil {
			fmt.Fprintf(os.Stderr, "append history: %v\n", err)
			os.Exit(1)
		}
		last = res
	}

	printPeerTable(last)

	b := banner.NewBanner(banner.BannerConfig{
		Root:        root,
		Datasite:    demoDatasite,
		Window:      time.Minute,
		HistoryPath: store.Path,
		Hostname:    "demo",
		TermWidth:   *termWidth,
	})
	out, err := b.Generate(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "banner: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// publishPeer writes one fresh tracker reading. Demo peers are best
// effort; a failed write just thins the network out.
func publishPeer(root, peer string, cpu float64) {
	rec := telemetry.NewRecord(cpu, time.Now())
	if err := telemetry.WriteRecord(telemetry.TrackerPath(root, peer), rec); err != nil {
		fmt.Fprintf(os.Stderr, "publish %s: %v\n", peer, err)
	}
}

// seedStalePeers writes readings old enough to fall outside any
// reasonable freshness window.
func seedStalePeers(root string, n int) {
	for i := 0; i < n; i++ {
		peer := fmt.Sprintf("stale%02d@demo.net", i+1)
		rec := telemetry.NewRecord(99, time.Now().Add(-5*time.Minute))
		if err := telemetry.WriteRecord(telemetry.TrackerPath(root, peer), rec); err != nil {
			fmt.Fprintf(os.Stderr, "publish %s: %v\n", peer, err)
		}
	}
}

// seedBrokenPeers writes tracker files in the broken shapes real peers
// have shipped: torn JSON, a missing timestamp, a non-numeric cpu.
func seedBrokenPeers(root string, n int) {
	shapes := []string{
		`{"cpu": 12.0, "timest`,
		`{"cpu": 12.0}`,
		fmt.Sprintf(`{"cpu": "n/a", "timestamp": %q}`, telemetry.FormatTime(time.Now())),
	}
	for i := 0; i < n; i++ {
		peer := fmt.Sprintf("broken%02d@demo.net", i+1)
		path := telemetry.TrackerPath(root, peer)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "publish %s: %v\n", peer, err)
			continue
		}
		if err := os.WriteFile(path, []byte(shapes[i%len(shapes)]), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "publish %s: %v\n", peer, err)
		}
	}
}

// printPeerTable shows the final pass the way the aggregator saw it.
func printPeerTable(res peernet.Result) {
	fmt.Printf("Final pass: mean %s over %d contributors\n\n",
		format.Percent(res.Mean), len(res.Contributors()))
	fmt.Printf("  %-24s %8s  %s\n", "PEER", "CPU", "STATUS")
	for _, rep := range res.Reports {
		status := "ok"
		cpu := format.Percent(rep.CPU)
		if !rep.Contributed() {
			status = rep.Skip.String()
			cpu = "--"
		}
		fmt.Printf("  %-24s %8s  %s\n", rep.Peer, cpu, status)
	}
	fmt.Println()
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Demo tool for cpu-tracker aggregation and display.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Small healthy network\n")
		fmt.Fprintf(os.Stderr, "  %s -peers 3 -stale 0 -broken 0\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Messy network with every failure shape\n")
		fmt.Fprintf(os.Stderr, "  %s -peers 6 -stale 2 -broken 3\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Reproducible run, root kept for inspection\n")
		fmt.Fprintf(os.Stderr, "  %s -seed 7 -keep\n", os.Args[0])
	}
}
