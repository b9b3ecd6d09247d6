package tui

import (
	"fmt"
	"strings"

	"github.com/OpenMined/cpu-tracker-leader/display/widgets"
	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// recentSampleRows caps the recent-samples table.
const recentSampleRows = 8

// renderHistoryContent renders the History tab: a sparkline over the
// published samples, summary stats, the most recent entries, and the
// peers who contributed to the latest run.
func renderHistoryContent(hist history.File, width, height int) string {
	layout := LayoutForSize(DetectLayout(width), width)
	var sections []string

	title := sectionTitle("Published History", layout.TableMaxWidth)
	sections = append(sections, styleTitle.Render(title))
	sections = append(sections, "")

	if len(hist.Items) == 0 {
		sections = append(sections, styleDim.Render("No samples published yet."))
		sections = append(sections, "")
		sections = append(sections, "The daemon appends one sample per aggregation cycle.")
		return strings.Join(sections, "\n")
	}

	data := make([]float64, len(hist.Items))
	for i, item := range hist.Items {
		data[i] = item.CPU
	}

	spark := widgets.RenderSparkline(widgets.SparklineConfig{
		Data:     data,
		Width:    layout.SparkWidth,
		Colorize: true,
	})
	sections = append(sections, spark)
	sections = append(sections, "")

	sections = append(sections, renderHistoryStats(hist.Items))
	sections = append(sections, "")

	sections = append(sections, renderRecentSamples(hist.Items, layout))
	sections = append(sections, "")

	peers := "(none)"
	if len(hist.Peers) > 0 {
		peers = strings.Join(hist.Peers, ", ")
	}
	sections = append(sections, styleLabel.Render("Last run peers:")+" "+styleValue.Render(peers))

	return strings.Join(sections, "\n")
}

// renderHistoryStats summarizes the samples: min, avg and max over the
// runs where peers reported, plus the count of quiet runs.
func renderHistoryStats(items []history.Entry) string {
	var sum, min, max float64
	var n, gaps int
	for _, item := range items {
		if item.CPU < 0 {
			gaps++
			continue
		}
		if n == 0 || item.CPU < min {
			min = item.CPU
		}
		if item.CPU > max {
			max = item.CPU
		}
		sum += item.CPU
		n++
	}

	if n == 0 {
		return styleDim.Render(fmt.Sprintf("%d samples, all quiet (no peer data)", len(items)))
	}

	line := fmt.Sprintf("min %s  avg %s  max %s  over %d samples",
		format.Percent(min), format.Percent(sum/float64(n)), format.Percent(max), n)
	if gaps > 0 {
		line += styleDim.Render(fmt.Sprintf("  (%d quiet)", gaps))
	}
	return line
}

// renderRecentSamples renders the newest samples, newest first.
func renderRecentSamples(items []history.Entry, layout LayoutConfig) string {
	columns := []widgets.Column{
		{Title: "Time", Width: 19, Align: widgets.AlignLeft},
		{Title: "Age", Width: 8, Align: widgets.AlignRight},
		{Title: "CPU", Width: 7, Align: widgets.AlignRight},
	}

	start := len(items) - recentSampleRows
	if start < 0 {
		start = 0
	}
	recent := items[start:]

	rows := make([][]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		item := recent[i]

		age := "-"
		if ts, err := telemetry.ParseTime(item.Timestamp); err == nil {
			age = format.TimeSince(ts)
		}

		rows = append(rows, []string{item.Timestamp, age, format.Percent(item.CPU)})
	}

	cfg := widgets.DefaultTableConfig()
	cfg.Columns = columns
	cfg.Rows = rows
	cfg.MaxWidth = layout.TableMaxWidth

	return widgets.RenderTable(cfg)
}
