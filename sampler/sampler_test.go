package sampler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// fakeCounters serves a scripted sequence of counter snapshots.
type fakeCounters struct {
	snaps []cpu.TimesStat
	calls int
}

func (f *fakeCounters) times(context.Context) ([]cpu.TimesStat, error) {
	if f.calls >= len(f.snaps) {
		return nil, errors.New("out of snapshots")
	}
	st := f.snaps[f.calls]
	f.calls++
	return []cpu.TimesStat{st}, nil
}

func newTestSampler(seedValue float64, snaps ...cpu.TimesStat) (*Sampler, *fakeCounters) {
	fc := &fakeCounters{snaps: snaps}
	s := &Sampler{
		times: fc.times,
		percent: func(_ context.Context, _ time.Duration) ([]float64, error) {
			return []float64{seedValue}, nil
		},
	}
	return s, fc
}

func TestUsageFirstCallBlocksOnPercent(t *testing.T) {
	s, fc := newTestSampler(37.5, cpu.TimesStat{User: 80, System: 20, Idle: 100})

	got, err := s.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage() err = %v", err)
	}
	if got != 37.5 {
		t.Errorf("Usage() = %v, want seed value 37.5", got)
	}
	if fc.calls != 1 {
		t.Errorf("times called %d times during seed, want 1", fc.calls)
	}
}

func TestUsageDeltaAfterSeed(t *testing.T) {
	// Seed snapshot: busy 100 of total 200. Second snapshot: busy 140
	// of total 300, so 40 busy over a 100 jiffy interval.
	s, _ := newTestSampler(10,
		cpu.TimesStat{User: 80, System: 20, Idle: 100},
		cpu.TimesStat{User: 110, System: 30, Idle: 160},
	)

	ctx := context.Background()
	if _, err := s.Usage(ctx); err != nil {
		t.Fatalf("seed Usage() err = %v", err)
	}
	got, err := s.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage() err = %v", err)
	}
	if got != 40 {
		t.Errorf("Usage() = %v, want 40", got)
	}
}

func TestUsageStalledCountersReturnLast(t *testing.T) {
	same := cpu.TimesStat{User: 80, System: 20, Idle: 100}
	s, _ := newTestSampler(25, same, same)

	ctx := context.Background()
	if _, err := s.Usage(ctx); err != nil {
		t.Fatalf("seed Usage() err = %v", err)
	}
	got, err := s.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage() err = %v", err)
	}
	if got != 25 {
		t.Errorf("Usage() = %v, want previous reading 25", got)
	}
}

func TestUsageClampsSeedValue(t *testing.T) {
	s, _ := newTestSampler(135.2, cpu.TimesStat{User: 1, Idle: 1})

	got, err := s.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage() err = %v", err)
	}
	if got != 100 {
		t.Errorf("Usage() = %v, want clamped 100", got)
	}
}

func TestUsagePercentFailure(t *testing.T) {
	s := &Sampler{
		times: func(context.Context) ([]cpu.TimesStat, error) { return nil, nil },
		percent: func(context.Context, time.Duration) ([]float64, error) {
			return nil, errors.New("proc not mounted")
		},
	}

	if _, err := s.Usage(context.Background()); err == nil {
		t.Error("Usage() err = nil, want first sample failure")
	}
}

func TestUsageTimesFailureAfterSeed(t *testing.T) {
	s, _ := newTestSampler(10, cpu.TimesStat{User: 80, System: 20, Idle: 100})

	ctx := context.Background()
	if _, err := s.Usage(ctx); err != nil {
		t.Fatalf("seed Usage() err = %v", err)
	}
	// The scripted counters are exhausted now.
	if _, err := s.Usage(ctx); err == nil {
		t.Error("Usage() err = nil, want counter read failure")
	}
}

func TestPublishWritesRecord(t *testing.T) {
	s, _ := newTestSampler(42.5, cpu.TimesStat{User: 80, System: 20, Idle: 100})
	s.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	path := filepath.Join(t.TempDir(), "api_data", "cpu_tracker", "cpu_tracker.json")
	rec, err := s.Publish(context.Background(), path)
	if err != nil {
		t.Fatalf("Publish() err = %v", err)
	}
	if rec.CPU != 42.5 {
		t.Errorf("record cpu = %v, want 42.5", rec.CPU)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() err = %v", err)
	}
	var back struct {
		CPU       float64 `json:"cpu"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() err = %v", err)
	}
	if back.CPU != 42.5 || back.Timestamp != "2025-03-14 09:26:53" {
		t.Errorf("published = %+v, want cpu 42.5 at 2025-03-14 09:26:53", back)
	}
}

func TestBusyTotal(t *testing.T) {
	st := cpu.TimesStat{
		User: 10, System: 5, Idle: 70, Nice: 1,
		Iowait: 4, Irq: 2, Softirq: 3, Steal: 5,
	}
	busy, total := busyTotal(st)
	if total != 100 {
		t.Errorf("total = %v, want 100", total)
	}
	if busy != 26 {
		t.Errorf("busy = %v, want 26 (total minus idle and iowait)", busy)
	}
}
