package tui

import (
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
)

// dataRefreshMsg carries a freshly loaded snapshot into the model.
type dataRefreshMsg struct {
	res  peernet.Result
	hist history.File
	err  error
	at   time.Time
}

// tickMsg schedules the next automatic refresh.
type tickMsg time.Time

// loadStateCmd returns a tea.Cmd that reads the published history and
// runs a read-only aggregation pass over the peers. It runs off the
// update loop so disk I/O never blocks rendering, and it writes
// nothing, leaving all persistence to the daemon.
func loadStateCmd(opts Options) tea.Cmd {
	return func() tea.Msg {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		msg := dataRefreshMsg{at: time.Now()}

		store := &history.Store{Path: opts.HistoryPath, Logger: logger}
		hist, err := store.Load()
		if err != nil {
			msg.err = err
			hist = history.File{Items: []history.Entry{}, Peers: []string{}}
		}
		msg.hist = hist

		agg := &peernet.Aggregator{Root: opts.Root, Window: opts.Window, Logger: logger}
		res, err := agg.Aggregate()
		if err != nil && msg.err == nil {
			msg.err = err
		}
		msg.res = res

		return msg
	}
}

// tickCmd emits a tickMsg after the refresh interval.
func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
