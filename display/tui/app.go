// Package tui implements the interactive dashboard: a live view of the
// peer network and the published history, refreshed on a timer from the
// same files the daemon maintains.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
)

// defaultRefresh is how often the dashboard reloads state from disk.
const defaultRefresh = 5 * time.Second

// Tab identifies which tab is currently active.
type Tab int

const (
	TabNetwork Tab = iota
	TabHistory
	tabCount // sentinel for wrapping
)

// tabNames maps each Tab value to its display label.
var tabNames = map[Tab]string{
	TabNetwork: "Network",
	TabHistory: "History",
}

// Options configures the dashboard's data sources.
type Options struct {
	// Root is the shared datasites directory.
	Root string
	// Datasite is this host's datasite identity, shown in the header.
	Datasite string
	// Window is the freshness window for peer readings.
	Window time.Duration
	// HistoryPath is the published history file location.
	HistoryPath string
	// RefreshEvery overrides the reload interval.
	RefreshEvery time.Duration
}

// Model is the top-level Bubbletea model for the tracker TUI.
type Model struct {
	opts      Options
	activeTab Tab
	width     int
	height    int
	help      help.Model

	res         peernet.Result
	hist        history.File
	loadErr     error
	lastUpdated time.Time
	loaded      bool
	ready       bool
}

// NewModel returns an initialized Model with TabNetwork active.
func NewModel(opts Options) Model {
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = defaultRefresh
	}
	return Model{
		opts:      opts,
		activeTab: TabNetwork,
		help:      help.New(),
	}
}

// Init implements tea.Model. It kicks off the first load and the
// refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadStateCmd(m.opts), tickCmd(m.opts.RefreshEvery))
}

// Update implements tea.Model. It handles key presses, resizes, the
// refresh timer and data arriving from loadStateCmd.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.NextTab):
			m.activeTab = (m.activeTab + 1) % tabCount
		case key.Matches(msg, keys.PrevTab):
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case key.Matches(msg, keys.Tab1):
			m.activeTab = TabNetwork
		case key.Matches(msg, keys.Tab2):
			m.activeTab = TabHistory
		case key.Matches(msg, keys.Refresh):
			return m, loadStateCmd(m.opts)
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case tickMsg:
		return m, tea.Batch(loadStateCmd(m.opts), tickCmd(m.opts.RefreshEvery))

	case dataRefreshMsg:
		m.res = msg.res
		m.hist = msg.hist
		m.loadErr = msg.err
		m.lastUpdated = msg.at
		m.loaded = true
	}

	return m, nil
}

// View implements tea.Model. It renders the header, active tab content,
// and footer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.renderTabContent()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderHeader renders the tab bar with the active tab highlighted and
// the datasite identity on the right.
func (m Model) renderHeader() string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		name := tabNames[i]
		if i == m.activeTab {
			tabs = append(tabs, styleActiveTab.Render(name))
		} else {
			tabs = append(tabs, styleInactiveTab.Render(name))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	site := styleDim.Render(m.opts.Datasite)
	if gap := m.width - lipgloss.Width(tabBar) - lipgloss.Width(site) - 1; gap > 0 {
		tabBar = lipgloss.JoinHorizontal(lipgloss.Top, tabBar,
			lipgloss.NewStyle().Width(gap).Render(""), site)
	}
	return styleHeader.Width(m.width).Render(tabBar)
}

// renderTabContent delegates to the appropriate tab renderer.
func (m Model) renderTabContent() string {
	// Reserve space for header and footer (approximate).
	contentHeight := m.height - 6
	if contentHeight < 1 {
		contentHeight = 1
	}

	if !m.loaded {
		return styleContent.Width(m.width).Render(styleDim.Render("Loading..."))
	}

	var content string
	switch m.activeTab {
	case TabNetwork:
		content = renderNetworkContent(m.res, m.loadErr, m.width, contentHeight)
	case TabHistory:
		content = renderHistoryContent(m.hist, m.width, contentHeight)
	default:
		content = ""
	}

	return styleContent.Width(m.width).Render(content)
}

// renderFooter renders the key help and last refresh timestamp.
func (m Model) renderFooter() string {
	line := m.help.View(keys)

	if !m.lastUpdated.IsZero() {
		line += fmt.Sprintf("  Updated: %s", m.lastUpdated.Format("15:04:05"))
	}
	if m.loadErr != nil {
		line += "  " + styleError.Render("(load error)")
	}

	return styleFooter.Width(m.width).Render(line)
}
