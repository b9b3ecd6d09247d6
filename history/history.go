// Package history persists the rolling record of network CPU means that
// the tracker publishes for its own datasite.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// DefaultMaxItems bounds the history to an hour of samples at the
// default ten second cadence.
const DefaultMaxItems = 360

// ErrCorrupt reports a history file that exists but cannot be decoded.
// The store refuses to overwrite it; losing an hour of samples silently
// is worse than making the operator look at the file.
var ErrCorrupt = errors.New("history: corrupt history file")

// Entry is one aggregation sample.
type Entry struct {
	CPU       float64 `json:"cpu"`
	Timestamp string  `json:"timestamp"`
}

// File is the published history document. Items holds the newest
// MaxItems samples oldest first; Peers lists the contributors to the
// latest sample only.
type File struct {
	Items []Entry  `json:"items"`
	Peers []string `json:"peers"`
}

// fileProbe decodes with a pointer so a missing or null items field is
// distinguishable from an empty list.
type fileProbe struct {
	Items *[]Entry `json:"items"`
	Peers []string `json:"peers"`
}

// Store reads and appends the history file at Path. MaxItems, Logger
// and Now are optional and default to DefaultMaxItems, slog.Default and
// time.Now.
type Store struct {
	Path     string
	MaxItems int
	Logger   *slog.Logger
	Now      func() time.Time
}

// Load reads the history file. A file that does not exist yet is an
// empty history, not an error.
func (s *Store) Load() (File, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{Items: []Entry{}, Peers: []string{}}, nil
		}
		return File{}, fmt.Errorf("history: read %s: %w", s.Path, err)
	}

	var probe fileProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return File{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.Path, err)
	}
	if probe.Items == nil {
		return File{}, fmt.Errorf("%w: %s: missing items list", ErrCorrupt, s.Path)
	}

	f := File{Items: *probe.Items, Peers: probe.Peers}
	if f.Peers == nil {
		f.Peers = []string{}
	}
	return f, nil
}

// Append records one sample stamped now, drops the oldest samples
// beyond the cap, replaces the peer list wholesale and writes the file
// back atomically. The updated document is returned. A corrupt existing
// file aborts the append and is left untouched.
func (s *Store) Append(mean float64, peers []string) (File, error) {
	f, err := s.Load()
	if err != nil {
		return File{}, err
	}

	f.Items = append(f.Items, Entry{CPU: mean, Timestamp: telemetry.FormatTime(s.now())})
	if max := s.maxItems(); len(f.Items) > max {
		f.Items = f.Items[len(f.Items)-max:]
	}

	// Peers describe the latest sample, so each append replaces the
	// previous list rather than merging into it.
	f.Peers = append([]string{}, peers...)

	if err := s.write(f); err != nil {
		return File{}, err
	}
	s.logger().Debug("history appended",
		"path", s.Path, "mean", mean, "items", len(f.Items), "peers", len(f.Peers))
	return f, nil
}

// write atomically replaces the history file. The document is published
// to peers by the sync layer, so readers must never see a torn write.
func (s *Store) write(f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cpu_tracker-*.json")
	if err != nil {
		return fmt.Errorf("history: create temp for %s: %w", s.Path, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: chmod temp for %s: %w", s.Path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write temp for %s: %w", s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close temp for %s: %w", s.Path, err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("history: rename temp for %s: %w", s.Path, err)
	}

	success = true
	return nil
}

func (s *Store) maxItems() int {
	if s.MaxItems > 0 {
		return s.MaxItems
	}
	return DefaultMaxItems
}

func (s *Store) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
