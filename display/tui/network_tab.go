package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/OpenMined/cpu-tracker-leader/display/widgets"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
)

// renderNetworkContent renders the Network tab: the current network mean
// with a gauge, then one row per enumerated peer with its status and
// reading.
func renderNetworkContent(res peernet.Result, loadErr error, width, height int) string {
	if loadErr != nil {
		return styleError.Render("Cannot read peer network") + "\n\n" +
			styleDim.Render(loadErr.Error()) + "\n\n" +
			"Check that the datasites root exists and is readable."
	}

	layout := LayoutForSize(DetectLayout(width), width)
	var sections []string

	title := sectionTitle("Peer Network", layout.TableMaxWidth)
	sections = append(sections, styleTitle.Render(title))
	sections = append(sections, "")

	fresh := len(res.Contributors())
	total := len(res.Reports)
	countText := fmt.Sprintf("(%d/%d peers fresh)", fresh, total)
	meanLine := styleLabel.Render("Network mean") + " " +
		meanBar(res.Mean, layout.GaugeWidth) + " " +
		styleValue.Render(format.Percent(res.Mean)) + " " +
		styleDim.Render(countText)
	sections = append(sections, meanLine)
	sections = append(sections, "")

	if total == 0 {
		sections = append(sections, styleDim.Render("No peers found under the datasites root."))
		return strings.Join(sections, "\n")
	}

	sections = append(sections, renderPeerTable(res.Reports, layout))
	return strings.Join(sections, "\n")
}

// meanBar renders the network mean as a progress bar, solid-filled by
// severity. The no-data sentinel renders as an empty muted bar.
func meanBar(mean float64, width int) string {
	color := colorSuccess
	switch {
	case mean < 0:
		color = colorMuted
	case mean >= widgets.DangerThreshold:
		color = colorDanger
	case mean >= widgets.WarnThreshold:
		color = colorWarning
	}

	bar := progress.New(
		progress.WithWidth(width),
		progress.WithoutPercentage(),
		progress.WithSolidFill(string(color)),
	)

	if mean < 0 {
		return bar.ViewAs(0)
	}
	return bar.ViewAs(math.Min(mean, 100) / 100)
}

// renderPeerTable renders one row per peer: name, status indicator and
// CPU reading. Skipped peers show their skip reason instead of a value.
func renderPeerTable(reports []peernet.PeerReport, layout LayoutConfig) string {
	columns := []widgets.Column{
		{Title: "Peer", Width: 0, Align: widgets.AlignLeft},
		{Title: "Status", Width: 16, Align: widgets.AlignLeft},
		{Title: "CPU", Width: 7, Align: widgets.AlignRight},
	}
	if layout.ShowMiniGauges {
		columns = append(columns, widgets.Column{Title: "", Width: 10, Align: widgets.AlignLeft})
	}

	rows := make([][]string, 0, len(reports))
	for _, rep := range reports {
		status := widgets.RenderStatusFromString(statusWord(rep))

		cpu := "-"
		if rep.Contributed() {
			cpu = format.Percent(rep.CPU)
		}

		row := []string{rep.Peer, status, cpu}
		if layout.ShowMiniGauges {
			gauge := ""
			if rep.Contributed() {
				gauge = widgets.RenderMiniGauge(rep.CPU, 8)
			}
			row = append(row, gauge)
		}
		rows = append(rows, row)
	}

	cfg := widgets.DefaultTableConfig()
	cfg.Columns = columns
	cfg.Rows = rows
	cfg.MaxWidth = layout.TableMaxWidth

	return widgets.RenderTable(cfg)
}

// statusWord maps a peer report to the display vocabulary.
func statusWord(rep peernet.PeerReport) string {
	if rep.Contributed() {
		return "fresh"
	}
	return rep.Skip.String()
}
