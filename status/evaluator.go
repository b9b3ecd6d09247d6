// Package status evaluates tracker state into health levels: the host's
// own published sample, the peer network, and the published history each
// become a component with a level and a reason.
package status

import (
	"fmt"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/history"
	"github.com/OpenMined/cpu-tracker-leader/internal/format"
	"github.com/OpenMined/cpu-tracker-leader/peernet"
	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// Level represents component health.
type Level int

const (
	LevelHealthy  Level = iota // Everything normal
	LevelWarning               // Something needs attention
	LevelCritical              // Immediate attention needed
	LevelUnknown               // Insufficient data
)

// String returns the human-readable name for a Level.
func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// levelSeverity returns the sort order for levels. Higher is worse.
// Critical > Warning > Unknown > Healthy.
func levelSeverity(l Level) int {
	switch l {
	case LevelHealthy:
		return 0
	case LevelUnknown:
		return 1
	case LevelWarning:
		return 2
	case LevelCritical:
		return 3
	default:
		return 0
	}
}

// worstLevel returns whichever Level is more severe.
func worstLevel(a, b Level) Level {
	if levelSeverity(a) >= levelSeverity(b) {
		return a
	}
	return b
}

// ComponentStatus holds the evaluation result for a single component.
type ComponentStatus struct {
	Component string // "sample", "network", "history"
	Level     Level
	Reason    string // Human-readable reason
}

// SystemStatus is the aggregate evaluation result.
type SystemStatus struct {
	Overall     Level // Worst of all components
	Components  []ComponentStatus
	EvaluatedAt time.Time
}

// EvaluatorConfig holds thresholds for evaluation rules.
type EvaluatorConfig struct {
	// SampleFreshFor is how old the host's own published sample may be
	// before it counts as stale. Default: telemetry.DefaultFreshFor.
	SampleFreshFor time.Duration
	// HistoryStallAfter is how long the published history may go
	// without a new sample before the daemon counts as wedged.
	// Default: 5m.
	HistoryStallAfter time.Duration
	// NetworkFreshWarnPercent warns when fewer than this share of
	// enumerated peers contributed a fresh reading. Default: 50.
	NetworkFreshWarnPercent float64
	// MeanWarnPercent warns when the network mean is above this
	// load. Default: 90.
	MeanWarnPercent float64
}

// DefaultEvaluatorConfig returns an EvaluatorConfig with the defaults.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		SampleFreshFor:          telemetry.DefaultFreshFor,
		HistoryStallAfter:       5 * time.Minute,
		NetworkFreshWarnPercent: 50.0,
		MeanWarnPercent:         90.0,
	}
}

// Evaluator turns tracker state into health levels. Now is optional and
// defaults to time.Now.
type Evaluator struct {
	config EvaluatorConfig
	Now    func() time.Time
}

// NewEvaluator creates an Evaluator with the given configuration.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.SampleFreshFor <= 0 {
		cfg.SampleFreshFor = telemetry.DefaultFreshFor
	}
	if cfg.HistoryStallAfter <= 0 {
		cfg.HistoryStallAfter = 5 * time.Minute
	}
	return &Evaluator{config: cfg}
}

// Evaluate runs all evaluation rules and returns the aggregate status.
// Nil inputs mean the corresponding state could not be read and
// evaluate to LevelUnknown.
func (e *Evaluator) Evaluate(own *telemetry.Record, net *peernet.Result, hist *history.File) SystemStatus {
	components := []ComponentStatus{
		e.evaluateSample(own),
		e.evaluateNetwork(net),
		e.evaluateHistory(hist),
	}

	overall := components[0].Level
	for _, c := range components[1:] {
		overall = worstLevel(overall, c.Level)
	}

	return SystemStatus{
		Overall:     overall,
		Components:  components,
		EvaluatedAt: e.now(),
	}
}

// evaluateSample checks the host's own published reading.
func (e *Evaluator) evaluateSample(own *telemetry.Record) ComponentStatus {
	if own == nil {
		return ComponentStatus{
			Component: "sample",
			Level:     LevelUnknown,
			Reason:    "not published yet",
		}
	}

	ts, err := telemetry.ParseTime(own.Timestamp)
	if err != nil {
		return ComponentStatus{
			Component: "sample",
			Level:     LevelCritical,
			Reason:    fmt.Sprintf("own tracker file has a bad timestamp: %q", own.Timestamp),
		}
	}

	age := e.now().UTC().Sub(ts)
	if age >= e.config.SampleFreshFor {
		return ComponentStatus{
			Component: "sample",
			Level:     LevelWarning,
			Reason:    fmt.Sprintf("last sample is %s old, sampler may have stopped", format.Duration(age)),
		}
	}

	return ComponentStatus{
		Component: "sample",
		Level:     LevelHealthy,
		Reason:    fmt.Sprintf("published %s at %.1f%% CPU", format.Age(age), own.CPU),
	}
}

// evaluateNetwork checks the latest aggregation pass.
func (e *Evaluator) evaluateNetwork(net *peernet.Result) ComponentStatus {
	if net == nil {
		return ComponentStatus{
			Component: "network",
			Level:     LevelUnknown,
			Reason:    "no data",
		}
	}

	total := len(net.Reports)
	if total == 0 {
		return ComponentStatus{
			Component: "network",
			Level:     LevelUnknown,
			Reason:    "no peers under the datasites root",
		}
	}

	fresh := len(net.Contributors())
	if !net.HasData() {
		return ComponentStatus{
			Component: "network",
			Level:     LevelWarning,
			Reason:    fmt.Sprintf("no fresh readings from %d peers", total),
		}
	}

	freshPct := float64(fresh) / float64(total) * 100.0
	if freshPct < e.config.NetworkFreshWarnPercent {
		return ComponentStatus{
			Component: "network",
			Level:     LevelWarning,
			Reason:    fmt.Sprintf("only %d/%d peers fresh (%.0f%%)", fresh, total, freshPct),
		}
	}

	if net.Mean >= e.config.MeanWarnPercent {
		return ComponentStatus{
			Component: "network",
			Level:     LevelWarning,
			Reason:    fmt.Sprintf("network mean at %.0f%%", net.Mean),
		}
	}

	return ComponentStatus{
		Component: "network",
		Level:     LevelHealthy,
		Reason:    fmt.Sprintf("%d/%d peers fresh, mean %.1f%%", fresh, total, net.Mean),
	}
}

// evaluateHistory checks that the published history keeps advancing.
func (e *Evaluator) evaluateHistory(hist *history.File) ComponentStatus {
	if hist == nil {
		return ComponentStatus{
			Component: "history",
			Level:     LevelUnknown,
			Reason:    "no data",
		}
	}

	if len(hist.Items) == 0 {
		return ComponentStatus{
			Component: "history",
			Level:     LevelUnknown,
			Reason:    "no samples yet",
		}
	}

	latest := hist.Items[len(hist.Items)-1]
	ts, err := telemetry.ParseTime(latest.Timestamp)
	if err != nil {
		return ComponentStatus{
			Component: "history",
			Level:     LevelCritical,
			Reason:    fmt.Sprintf("latest sample has a bad timestamp: %q", latest.Timestamp),
		}
	}

	age := e.now().UTC().Sub(ts)
	if age >= e.config.HistoryStallAfter {
		return ComponentStatus{
			Component: "history",
			Level:     LevelWarning,
			Reason:    fmt.Sprintf("history stalled, last sample %s old", format.Duration(age)),
		}
	}

	return ComponentStatus{
		Component: "history",
		Level:     LevelHealthy,
		Reason:    fmt.Sprintf("%d samples, latest %s", len(hist.Items), format.Age(age)),
	}
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
