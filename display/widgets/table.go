package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alignment controls text alignment within a table column.
type Alignment int

const (
	// AlignLeft aligns text to the left (default).
	AlignLeft Alignment = iota
	// AlignRight aligns text to the right.
	AlignRight
	// AlignCenter centers text within the column.
	AlignCenter
)

// Column defines a single table column.
type Column struct {
	// Title is the header text.
	Title string
	// Width is the fixed character width. If 0, the width is taken
	// from the widest cell in the column.
	Width int
	// Align controls text alignment within the column.
	Align Alignment
}

// TableConfig holds the configuration for rendering a table.
type TableConfig struct {
	// Columns defines the table structure.
	Columns []Column
	// Rows is the table data. Each row is a slice of cell strings;
	// short rows render with empty trailing cells.
	Rows [][]string
	// MaxWidth caps the total table width. Auto-sized columns shrink
	// proportionally to fit.
	MaxWidth int
	// ShowHeader controls whether the header and rule are displayed.
	ShowHeader bool
	// HeaderStyle is the lipgloss style for the header row.
	HeaderStyle lipgloss.Style
}

// columnGap separates columns. Two spaces keep peer tables compact on
// narrow terminals.
const columnGap = "  "

// DefaultTableConfig returns a TableConfig with the tracker's defaults.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		ShowHeader:  true,
		HeaderStyle: lipgloss.NewStyle().Bold(true),
	}
}

// RenderTable renders a plain-text table from the given configuration.
// Cell strings may carry their own ANSI styling; widths are computed on
// the raw text, so styled cells should pad to a fixed visual width.
func RenderTable(cfg TableConfig) string {
	if len(cfg.Columns) == 0 {
		return ""
	}

	widths := columnWidths(cfg.Columns, cfg.Rows, cfg.MaxWidth)

	var lines []string

	if cfg.ShowHeader {
		cells := make([]string, len(cfg.Columns))
		for i, col := range cfg.Columns {
			cells[i] = fitCell(col.Title, widths[i], AlignLeft)
		}
		lines = append(lines, cfg.HeaderStyle.Render(strings.Join(cells, columnGap)))

		rule := make([]string, len(cfg.Columns))
		for i := range cfg.Columns {
			rule[i] = strings.Repeat("─", widths[i])
		}
		lines = append(lines, strings.Join(rule, columnGap))
	}

	for _, row := range cfg.Rows {
		cells := make([]string, len(cfg.Columns))
		for i := range cfg.Columns {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			cells[i] = fitCell(text, widths[i], cfg.Columns[i].Align)
		}
		lines = append(lines, strings.Join(cells, columnGap))
	}

	return strings.Join(lines, "\n")
}

// fitCell pads or truncates a cell to width with the given alignment.
// Truncation replaces the last visible rune with an ellipsis.
func fitCell(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) > width {
		if width == 1 {
			return string(runes[:1])
		}
		return string(runes[:width-1]) + "…"
	}

	pad := width - len(runes)
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + s
	case AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
	default:
		return s + strings.Repeat(" ", pad)
	}
}

// columnWidths resolves each column's width: fixed widths are taken as
// given, auto widths grow to the widest of the header and cells, then
// auto columns shrink proportionally when the total exceeds maxWidth.
func columnWidths(cols []Column, rows [][]string, maxWidth int) []int {
	widths := make([]int, len(cols))
	autoTotal := 0

	for i, col := range cols {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		w := len([]rune(col.Title))
		for _, row := range rows {
			if i < len(row) {
				if l := len([]rune(row[i])); l > w {
					w = l
				}
			}
		}
		if w == 0 {
			w = 1
		}
		widths[i] = w
		autoTotal += w
	}

	if maxWidth <= 0 {
		return widths
	}

	gaps := (len(cols) - 1) * len(columnGap)
	total := gaps
	for _, w := range widths {
		total += w
	}
	if total <= maxWidth || autoTotal == 0 {
		return widths
	}

	// Only auto-sized columns give ground; fixed widths were asked for.
	excess := total - maxWidth
	for i, col := range cols {
		if col.Width > 0 {
			continue
		}
		cut := excess * widths[i] / autoTotal
		widths[i] -= cut
		if widths[i] < 1 {
			widths[i] = 1
		}
	}
	return widths
}
