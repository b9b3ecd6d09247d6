// Package banner renders the one-shot status card shown on demand: the
// live network mean, the contributing peers and a sparkline of the
// published history, composed into a single terminal-ready string.
//
// The card reads the same files the daemon writes but never writes
// anything itself, so it is safe to run while the daemon is mid-cycle.
package banner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/OpenMined/cpu-tracker-leader/display/widgets"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

const (
	// maxCardWidth keeps the card readable on very wide terminals.
	maxCardWidth = 72
	// maxPeerRows bounds the per-peer listing so a large network does
	// not scroll the card off screen.
	maxPeerRows = 4
)

var (
	colorTitle = lipgloss.Color("#22C55E")
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
)

// BannerConfig controls banner generation behavior.
type BannerConfig struct {
	// Root is the shared datasites directory.
	Root string
	// Datasite is this host's datasite identity.
	Datasite string
	// Window is the freshness window for peer readings.
	Window time.Duration
	// HistoryPath is the published history file location.
	HistoryPath string
	// Hostname overrides os.Hostname().
	Hostname string
	// TermWidth overrides terminal width detection.
	TermWidth int
	// Logger for banner operations.
	Logger *slog.Logger
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Banner composes the status card:
//  1. Load the published history file
//  2. Run a read-only aggregation pass over the peers
//  3. Render both into a boxed card
type Banner struct {
	config BannerConfig
}

// NewBanner creates a Banner with the given configuration.
// If Logger is nil, a no-op logger is used.
func NewBanner(cfg BannerConfig) *Banner {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Banner{config: cfg}
}

// Generate produces the complete card string. Both data sources degrade
// softly: an unreadable history renders as "no samples" and an
// unreachable root as an unreachable network, so the card always
// renders something.
func (b *Banner) Generate(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	store := &history.Store{Path: b.config.HistoryPath, Logger: b.config.Logger}
	hist, err := store.Load()
	if err != nil {
		b.config.Logger.Warn("banner: history unavailable", "error", err)
		hist = history.File{Items: []history.Entry{}, Peers: []string{}}
	}

	agg := &peernet.Aggregator{
		Root:   b.config.Root,
		Window: b.config.Window,
		Logger: b.config.Logger,
		Now:    b.config.Now,
	}
	res, aggErr := agg.Aggregate()
	if aggErr != nil {
		b.config.Logger.Warn("banner: aggregation unavailable", "error", aggErr)
	}

	width := b.config.TermWidth
	if width == 0 {
		width = DetectWidth()
	}
	if width > maxCardWidth {
		width = maxCardWidth
	}

	lines := b.buildLines(res, aggErr, hist, width-4)
	return RenderBox(lines, width, "cpu tracker", colorTitle), nil
}

// buildLines composes the card body. inner is the usable width between
// the box borders.
func (b *Banner) buildLines(res peernet.Result, aggErr error, hist history.File, inner int) []string {
	var lines []string

	hostname := b.config.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
	}
	lines = append(lines, hostname+" :: "+nameStyle.Render(b.config.Datasite))
	if up := computeUptime(); up != "unknown" {
		lines = append(lines, "uptime: "+up)
	}
	lines = append(lines, "")

	if aggErr != nil {
		lines = append(lines, "network: (unreachable)")
	} else {
		gaugeWidth := inner - 17
		if gaugeWidth < 8 {
			gaugeWidth = 8
		}
		lines = append(lines, widgets.RenderGauge(widgets.GaugeConfig{
			Width:       gaugeWidth,
			Percent:     res.Mean,
			Label:       "network",
			ShowPercent: true,
		}))

		fresh := contributing(res)
		lines = append(lines, fmt.Sprintf("peers:  %d fresh / %d seen", len(fresh), len(res.Reports)))
		for i, rep := range fresh {
			if i == maxPeerRows {
				lines = append(lines, fmt.Sprintf("  +%d more", len(fresh)-maxPeerRows))
				break
			}
			name := format.TruncateWithEllipsis(rep.Peer, 22)
			lines = append(lines, fmt.Sprintf("  %-22s %s %s",
				name, widgets.RenderMiniGauge(rep.CPU, 6), format.Percent(rep.CPU)))
		}
	}
	lines = append(lines, "")

	if len(hist.Items) == 0 {
		lines = append(lines, "history: no samples yet")
		return lines
	}

	data := make([]float64, len(hist.Items))
	for i, item := range hist.Items {
		data[i] = item.CPU
	}
	sparkWidth := inner - 9
	if sparkWidth > 0 {
		lines = append(lines, widgets.RenderSparkline(widgets.SparklineConfig{
			Data:     data,
			Width:    sparkWidth,
			Colorize: true,
			Label:    "history:",
		}))
	}

	if mn, avg, mx, n := historyStats(hist.Items); n > 0 {
		lines = append(lines, fmt.Sprintf("  min %s | avg %s | max %s",
			format.Percent(mn), format.Percent(avg), format.Percent(mx)))
	}

	if ts, err := telemetry.ParseTime(hist.Items[len(hist.Items)-1].Timestamp); err == nil {
		lines = append(lines, "last sample: "+format.Age(b.now().Sub(ts)))
	}

	return lines
}

// contributing filters a result down to the peers that entered the mean.
func contributing(res peernet.Result) []peernet.PeerReport {
	var out []peernet.PeerReport
	for _, rep := range res.Reports {
		if rep.Contributed() {
			out = append(out, rep)
		}
	}
	return out
}

// historyStats summarizes the non-sentinel samples. n is how many
// samples carried data.
func historyStats(items []history.Entry) (mn, avg, mx float64, n int) {
	var sum float64
	for _, item := range items {
		if item.CPU < 0 {
			continue
		}
		if n == 0 || item.CPU < mn {
			mn = item.CPU
		}
		if n == 0 || item.CPU > mx {
			mx = item.CPU
		}
		sum += item.CPU
		n++
	}
	if n > 0 {
		avg = sum / float64(n)
	}
	return mn, avg, mx, n
}

// computeUptime returns a human-readable system uptime string.
// Returns "unknown" if the uptime cannot be determined.
func computeUptime() string {
	d := getSystemUptime()
	if d == 0 {
		return "unknown"
	}
	return format.Duration(d)
}

func (b *Banner) now() time.Time {
	if b.config.Now != nil {
		return b.config.Now()
	}
	return time.Now()
}
