// Package sampler measures this host's CPU usage and publishes it as a
// tracker reading for peers to aggregate.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/OpenMined/cpu-tracker-leader/telemetry"
)

// seedInterval is how long the very first sample blocks. Usage is a
// rate, so with no earlier counter snapshot the only honest answer is
// to measure over a short window.
const seedInterval = time.Second

var errNoCPUTimes = errors.New("sampler: no cpu times reported")

// Sampler produces CPU usage percentages. After a blocking first
// sample it switches to deltas between cumulative counters, so calls
// from the poll loop return immediately. Safe for concurrent use.
type Sampler struct {
	Logger *slog.Logger
	Now    func() time.Time

	times   func(ctx context.Context) ([]cpu.TimesStat, error)
	percent func(ctx context.Context, interval time.Duration) ([]float64, error)

	mu        sync.Mutex
	seeded    bool
	prevBusy  float64
	prevTotal float64
	last      float64
}

// New returns a Sampler backed by the host's real CPU counters.
func New() *Sampler {
	return &Sampler{
		times: func(ctx context.Context) ([]cpu.TimesStat, error) {
			return cpu.TimesWithContext(ctx, false)
		},
		percent: func(ctx context.Context, interval time.Duration) ([]float64, error) {
			return cpu.PercentWithContext(ctx, interval, false)
		},
	}
}

// Usage returns the host's CPU usage in percent, clamped to [0,100].
// The first call blocks for about a second; later calls measure the
// interval since the previous one.
func (s *Sampler) Usage(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		return s.seed(ctx)
	}

	stats, err := s.times(ctx)
	if err != nil {
		return 0, fmt.Errorf("sampler: read cpu times: %w", err)
	}
	if len(stats) == 0 {
		return 0, errNoCPUTimes
	}

	busy, total := busyTotal(stats[0])
	deltaBusy := busy - s.prevBusy
	deltaTotal := total - s.prevTotal
	s.prevBusy, s.prevTotal = busy, total

	// Counters that have not advanced, or that went backwards after a
	// suspend, give no usable interval; report the previous reading.
	if deltaTotal <= 0 {
		return s.last, nil
	}

	s.last = clamp(deltaBusy / deltaTotal * 100)
	return s.last, nil
}

// seed takes the blocking first measurement and snapshots the counters
// so the next call can be delta based. Callers hold s.mu.
func (s *Sampler) seed(ctx context.Context) (float64, error) {
	vals, err := s.percent(ctx, seedInterval)
	if err != nil {
		return 0, fmt.Errorf("sampler: first sample: %w", err)
	}
	if len(vals) == 0 {
		return 0, errNoCPUTimes
	}
	s.last = clamp(vals[0])

	if stats, err := s.times(ctx); err == nil && len(stats) > 0 {
		s.prevBusy, s.prevTotal = busyTotal(stats[0])
		s.seeded = true
	}
	return s.last, nil
}

// Publish measures usage and writes it to the tracker file at path,
// stamped with the current UTC time.
func (s *Sampler) Publish(ctx context.Context, path string) (telemetry.Record, error) {
	usage, err := s.Usage(ctx)
	if err != nil {
		return telemetry.Record{}, err
	}

	rec := telemetry.NewRecord(usage, s.now())
	if err := telemetry.WriteRecord(path, rec); err != nil {
		return telemetry.Record{}, err
	}
	s.logger().Debug("published reading", "path", path, "cpu", usage)
	return rec, nil
}

func (s *Sampler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Sampler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// busyTotal folds one cumulative counter snapshot into busy and total
// jiffy sums. Idle and iowait are the two states where the CPU was not
// doing work.
func busyTotal(t cpu.TimesStat) (busy, total float64) {
	total = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice
	busy = total - t.Idle - t.Iowait
	return busy, total
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
