// Package telemetry defines the CPU reading each host publishes into the
// shared namespace and the freshness policy applied when reading one back.
//
// Every timestamp this system writes or compares is UTC in a fixed
// "YYYY-MM-DD HH:MM:SS" layout. The original tracker scripts compared
// producer timestamps against the consumer's local wall clock, which only
// lined up on hosts running UTC; here both sides of the exchange use UTC
// explicitly.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimeLayout is the wire format for timestamps exchanged between peers.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultFreshFor is how recent a peer reading must be to count toward
// the network mean. Readings exactly this old are already stale.
const DefaultFreshFor = time.Minute

// trackerRelPath is where each peer publishes its reading inside its own
// datasite folder.
var trackerRelPath = filepath.Join("api_data", "cpu_tracker", "cpu_tracker.json")

// ErrBadTimestamp reports a timestamp that does not match TimeLayout.
// Callers distinguish it from staleness: an unparseable timestamp is a
// validation failure, not an old reading.
var ErrBadTimestamp = errors.New("telemetry: malformed timestamp")

// Record is one host's published CPU reading.
type Record struct {
	CPU       float64 `json:"cpu"`
	Timestamp string  `json:"timestamp"`
}

// NewRecord builds a Record for the given usage percentage stamped at now.
func NewRecord(cpu float64, now time.Time) Record {
	return Record{CPU: cpu, Timestamp: FormatTime(now)}
}

// TrackerPath returns the tracker file location for one peer under the
// shared datasites root.
func TrackerPath(root, peer string) string {
	return filepath.Join(root, peer, trackerRelPath)
}

// FormatTime renders t in the wire layout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a wire-format timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return t, nil
}

// FreshAt reports whether a reading stamped ts is fresh relative to now:
// strictly less than window old. Future timestamps, which show up when
// peer clocks drift, satisfy the inequality and count as fresh. A
// timestamp that does not parse is neither fresh nor stale; the returned
// error wraps ErrBadTimestamp so callers can keep the two conditions
// apart.
func FreshAt(ts string, now time.Time, window time.Duration) (bool, error) {
	t, err := ParseTime(ts)
	if err != nil {
		return false, err
	}
	if window <= 0 {
		window = DefaultFreshFor
	}
	return now.UTC().Sub(t) < window, nil
}

// Fresh applies FreshAt against the current wall clock with the default
// window.
func Fresh(ts string) (bool, error) {
	return FreshAt(ts, time.Now(), DefaultFreshFor)
}

// WriteRecord atomically replaces the tracker file at path with rec.
// Peers read tracker files without any locking protocol, so the write
// goes to a temp file in the same directory first and is renamed into
// place; a reader never observes a half-written record from this host.
func WriteRecord(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("telemetry: marshal record: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("telemetry: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cpu_tracker-*.json")
	if err != nil {
		return fmt.Errorf("telemetry: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any failure path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	// Tracker files are served to peers by the sync layer, so they are
	// world-readable rather than private like a cache.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("telemetry: chmod temp for %s: %w", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("telemetry: write temp for %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("telemetry: close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("telemetry: rename temp for %s: %w", path, err)
	}

	success = true
	return nil
}
