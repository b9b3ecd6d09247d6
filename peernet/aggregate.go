package peernet

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// SentinelNoData is the mean recorded when no peer contributed a fresh
// reading. It is persisted as-is so downstream consumers can tell "the
// network was quiet" apart from "the tracker was not running".
const SentinelNoData = -1

// SkipReason says why a peer's reading was left out of the mean.
type SkipReason int

const (
	// SkipNone marks a peer that contributed.
	SkipNone SkipReason = iota
	// SkipMissingFile: the peer has no tracker file, usually because it
	// never installed the app.
	SkipMissingFile
	// SkipUnreadable: the tracker file exists but could not be read.
	SkipUnreadable
	// SkipBadJSON: the tracker file is not valid JSON.
	SkipBadJSON
	// SkipNoTimestamp: valid JSON with no timestamp field.
	SkipNoTimestamp
	// SkipBadTimestamp: the timestamp field does not parse.
	SkipBadTimestamp
	// SkipStale: the reading is older than the freshness window.
	SkipStale
	// SkipBadCPU: fresh reading whose cpu field is missing or not numeric.
	SkipBadCPU
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipMissingFile:
		return "missing-file"
	case SkipUnreadable:
		return "unreadable"
	case SkipBadJSON:
		return "bad-json"
	case SkipNoTimestamp:
		return "no-timestamp"
	case SkipBadTimestamp:
		return "bad-timestamp"
	case SkipStale:
		return "stale"
	case SkipBadCPU:
		return "bad-cpu"
	default:
		return "unknown"
	}
}

// PeerReport is the outcome of reading one peer's tracker file.
type PeerReport struct {
	Peer string
	CPU  float64
	Skip SkipReason
}

// Contributed reports whether this peer's reading entered the mean.
func (p PeerReport) Contributed() bool {
	return p.Skip == SkipNone
}

// Result is one aggregation pass over the whole network.
type Result struct {
	// Mean is the average CPU over contributing peers, or SentinelNoData
	// when nobody contributed.
	Mean float64
	// Reports holds one entry per enumerated peer, in enumeration order.
	Reports []PeerReport
}

// Contributors returns the names of the peers whose readings entered the
// mean, in enumeration order. The slice is never nil.
func (r Result) Contributors() []string {
	names := make([]string, 0, len(r.Reports))
	for _, rep := range r.Reports {
		if rep.Contributed() {
			names = append(names, rep.Peer)
		}
	}
	return names
}

// HasData reports whether at least one peer contributed.
func (r Result) HasData() bool {
	return r.Mean != SentinelNoData
}

// Aggregator computes the network CPU mean across all peers under Root.
// The zero value is not usable; Root must be set. Window, Logger and Now
// are optional and default to telemetry.DefaultFreshFor, slog.Default
// and time.Now.
type Aggregator struct {
	Root   string
	Window time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

// Aggregate enumerates the peers and folds their readings into a
// Result. Per-peer problems are recorded on the report and skipped; the
// only error returned is an inaccessible root.
func (a *Aggregator) Aggregate() (Result, error) {
	peers, err := Enumerate(a.Root)
	if err != nil {
		return Result{}, err
	}

	res := Result{Mean: SentinelNoData, Reports: make([]PeerReport, 0, len(peers))}
	var sum float64
	var n int
	for _, peer := range peers {
		rep := a.readPeer(peer)
		if rep.Contributed() {
			sum += rep.CPU
			n++
		} else {
			a.logger().Debug("peer skipped", "peer", peer, "reason", rep.Skip)
		}
		res.Reports = append(res.Reports, rep)
	}
	if n > 0 {
		res.Mean = sum / float64(n)
	}
	return res, nil
}

// readPeer reads and validates one peer's tracker file. Checks run in
// the order a reader would hit them: file, JSON, timestamp, freshness,
// cpu value. A stale reading is reported stale even if its cpu field is
// also broken.
func (a *Aggregator) readPeer(peer string) PeerReport {
	rep := PeerReport{Peer: peer}

	data, err := os.ReadFile(telemetry.TrackerPath(a.Root, peer))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			rep.Skip = SkipMissingFile
		} else {
			rep.Skip = SkipUnreadable
		}
		return rep
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		rep.Skip = SkipBadJSON
		return rep
	}

	rawTS, ok := fields["timestamp"]
	if !ok {
		rep.Skip = SkipNoTimestamp
		return rep
	}
	var ts string
	if err := json.Unmarshal(rawTS, &ts); err != nil {
		rep.Skip = SkipBadTimestamp
		return rep
	}

	fresh, err := telemetry.FreshAt(ts, a.now(), a.Window)
	if err != nil {
		rep.Skip = SkipBadTimestamp
		return rep
	}
	if !fresh {
		rep.Skip = SkipStale
		return rep
	}

	cpu, ok := coerceCPU(fields["cpu"])
	if !ok {
		rep.Skip = SkipBadCPU
		return rep
	}
	rep.CPU = cpu
	return rep
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// coerceCPU accepts the cpu field as a JSON number or a numeric string.
// Trackers on other runtimes have shipped both shapes. Non-finite
// values are rejected so a single NaN cannot poison the mean.
func coerceCPU(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, finite(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return f, finite(f)
		}
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
