package history

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T, maxItems int) *Store {
	t.Helper()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	tick := 0
	return &Store{
		Path:     filepath.Join(t.TempDir(), "public", "cpu_tracker.json"),
		MaxItems: maxItems,
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * 10 * time.Second)
		},
	}
}

func means(items []Entry) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.CPU
	}
	return out
}

func TestLoadMissingFile(t *testing.T) {
	s := testStore(t, 0)

	f, err := s.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if len(f.Items) != 0 || len(f.Peers) != 0 {
		t.Errorf("Load() = %+v, want empty history", f)
	}
	if f.Items == nil || f.Peers == nil {
		t.Error("Load() returned nil slices, want empty")
	}
}

func TestAppendCreatesFile(t *testing.T) {
	s := testStore(t, 0)

	f, err := s.Append(42.5, []string{"a@example.com", "b@example.com"})
	if err != nil {
		t.Fatalf("Append() err = %v", err)
	}
	if got := means(f.Items); !reflect.DeepEqual(got, []float64{42.5}) {
		t.Errorf("items = %v, want [42.5]", got)
	}
	if f.Items[0].Timestamp != "2025-03-14 09:00:10" {
		t.Errorf("timestamp = %q, want %q", f.Items[0].Timestamp, "2025-03-14 09:00:10")
	}

	back, err := s.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if !reflect.DeepEqual(back, f) {
		t.Errorf("Load() = %+v, want %+v", back, f)
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	s := testStore(t, 3)

	for _, mean := range []float64{10, 20, 30, 40} {
		if _, err := s.Append(mean, []string{"x"}); err != nil {
			t.Fatalf("Append(%v) err = %v", mean, err)
		}
	}

	f, err := s.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if got := means(f.Items); !reflect.DeepEqual(got, []float64{20, 30, 40}) {
		t.Errorf("items = %v, want [20 30 40]", got)
	}
}

func TestAppendReplacesPeers(t *testing.T) {
	s := testStore(t, 0)

	if _, err := s.Append(10, []string{"a@example.com", "b@example.com"}); err != nil {
		t.Fatalf("Append() err = %v", err)
	}
	if _, err := s.Append(20, []string{"x@example.com"}); err != nil {
		t.Fatalf("Append() err = %v", err)
	}

	f, err := s.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if !reflect.DeepEqual(f.Peers, []string{"x@example.com"}) {
		t.Errorf("peers = %v, want only the latest contributors", f.Peers)
	}
}

func TestAppendSentinelMean(t *testing.T) {
	s := testStore(t, 0)

	f, err := s.Append(-1, nil)
	if err != nil {
		t.Fatalf("Append() err = %v", err)
	}
	if f.Items[0].CPU != -1 {
		t.Errorf("cpu = %v, want sentinel -1 persisted", f.Items[0].CPU)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("ReadFile() err = %v", err)
	}
	if !strings.Contains(string(data), `"peers": []`) {
		t.Errorf("file = %s, want peers serialized as empty list", data)
	}
}

func TestAppendTimestampsAdvance(t *testing.T) {
	s := testStore(t, 0)

	s.Append(1, nil)
	s.Append(2, nil)
	f, err := s.Load()
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if f.Items[0].Timestamp >= f.Items[1].Timestamp {
		t.Errorf("timestamps not increasing: %q then %q", f.Items[0].Timestamp, f.Items[1].Timestamp)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"items": [{"cpu": 10,`},
		{"not json", "hello\n"},
		{"items missing", `{"peers": []}`},
		{"items null", `{"items": null, "peers": []}`},
		{"items not a list", `{"items": "busy", "peers": []}`},
		{"entry wrong shape", `{"items": [{"cpu": "ten", "timestamp": 3}], "peers": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testStore(t, 0)
			if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(s.Path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := s.Load(); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestAppendLeavesCorruptFileAlone(t *testing.T) {
	s := testStore(t, 0)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	original := []byte(`{"items": "not a list"}`)
	if err := os.WriteFile(s.Path, original, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Append(50, []string{"a"}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Append() err = %v, want ErrCorrupt", err)
	}

	after, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("ReadFile() err = %v", err)
	}
	if string(after) != string(original) {
		t.Errorf("file rewritten to %s, want untouched", after)
	}
}

func TestAppendWorldReadable(t *testing.T) {
	s := testStore(t, 0)
	if _, err := s.Append(10, nil); err != nil {
		t.Fatalf("Append() err = %v", err)
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		t.Fatalf("Stat() err = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("perm = %o, want 0644", perm)
	}
}

func TestDefaultCap(t *testing.T) {
	s := testStore(t, 0)
	if got := s.maxItems(); got != DefaultMaxItems {
		t.Errorf("maxItems() = %d, want %d", got, DefaultMaxItems)
	}
}
