package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/OpenMined/cpu-tracker-leader/peernet"
)

func TestRenderNetworkContent_LoadError(t *testing.T) {
	got := renderNetworkContent(peernet.Result{}, errors.New("root gone"), 80, 24)

	if !strings.Contains(got, "Cannot read peer network") {
		t.Error("expected error headline")
	}
	if !strings.Contains(got, "root gone") {
		t.Error("expected the underlying error text")
	}
}

func TestRenderNetworkContent_NoPeers(t *testing.T) {
	res := peernet.Result{Mean: peernet.SentinelNoData}
	got := renderNetworkContent(res, nil, 80, 24)

	if !strings.Contains(got, "No peers found") {
		t.Error("expected empty-network message")
	}
	if !strings.Contains(got, "(0/0 peers fresh)") {
		t.Errorf("expected zero counts, got:\n%s", got)
	}
}

func TestRenderNetworkContent_MixedPeers(t *testing.T) {
	res := peernet.Result{
		Mean: 30,
		Reports: []peernet.PeerReport{
			{Peer: "alice@example.com", CPU: 20, Skip: peernet.SkipNone},
			{Peer: "bob@example.com", CPU: 40, Skip: peernet.SkipNone},
			{Peer: "carol@example.com", Skip: peernet.SkipStale},
			{Peer: "dave@example.com", Skip: peernet.SkipMissingFile},
		},
	}

	got := renderNetworkContent(res, nil, 100, 30)

	if !strings.Contains(got, "Peer Network") {
		t.Error("expected section title")
	}
	if !strings.Contains(got, "(2/4 peers fresh)") {
		t.Errorf("expected fresh counts, got:\n%s", got)
	}
	for _, peer := range []string{"alice@example.com", "bob@example.com", "carol@example.com", "dave@example.com"} {
		if !strings.Contains(got, peer) {
			t.Errorf("expected row for %s", peer)
		}
	}
	if !strings.Contains(got, "stale") {
		t.Error("expected stale skip reason in status column")
	}
	if !strings.Contains(got, "missing-file") {
		t.Error("expected missing-file skip reason in status column")
	}
	if !strings.Contains(got, "30.0%") {
		t.Errorf("expected formatted mean, got:\n%s", got)
	}
}

func TestRenderNetworkContent_SentinelMean(t *testing.T) {
	res := peernet.Result{
		Mean: peernet.SentinelNoData,
		Reports: []peernet.PeerReport{
			{Peer: "alice@example.com", Skip: peernet.SkipStale},
		},
	}

	got := renderNetworkContent(res, nil, 80, 24)

	if !strings.Contains(got, "--") {
		t.Error("expected -- placeholder for the sentinel mean")
	}
	if strings.Contains(got, "-1.0%") {
		t.Error("sentinel must not render as a percentage")
	}
}

func TestStatusWord(t *testing.T) {
	fresh := peernet.PeerReport{Peer: "a", CPU: 5, Skip: peernet.SkipNone}
	if got := statusWord(fresh); got != "fresh" {
		t.Errorf("statusWord(contributing) = %q, want %q", got, "fresh")
	}

	stale := peernet.PeerReport{Peer: "b", Skip: peernet.SkipStale}
	if got := statusWord(stale); got != "stale" {
		t.Errorf("statusWord(stale) = %q, want %q", got, "stale")
	}
}

func TestMeanBar_Widths(t *testing.T) {
	// The bar must occupy the requested width regardless of value.
	for _, mean := range []float64{-1, 0, 55, 100, 250} {
		bar := meanBar(mean, 20)
		if bar == "" {
			t.Errorf("meanBar(%v) rendered empty", mean)
		}
	}
}
