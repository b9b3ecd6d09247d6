package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenMined/cpu-tracker-leader/internal/format"
)

// HealthStatus represents the daemon health check output.
type HealthStatus struct {
	Status     string    `json:"status"`
	LastCycle  time.Time `json:"last_cycle"`
	Mean       float64   `json:"mean"`
	PeersFresh int       `json:"peers_fresh"`
	PeersSeen  int       `json:"peers_seen"`
	Samples    int       `json:"samples"`
}

// healthFile is the filename for the daemon health check within the runtime directory.
const healthFile = "health.json"

// writeHealthFile writes the health status to the runtime directory.
func writeHealthFile(runDir string, status HealthStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	path := filepath.Join(runDir, healthFile)
	return os.WriteFile(path, data, 0644)
}

// readHealthFile reads the health status from the runtime directory.
func readHealthFile(runDir string) (*HealthStatus, error) {
	path := filepath.Join(runDir, healthFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}

	return &status, nil
}

// checkHealth reads the health file and reports whether the daemon is healthy.
// The daemon is considered healthy if the health file exists and the last cycle
// finished within 2x the poll interval. Returns exit code 0 for healthy, 1 for
// unhealthy/missing.
func checkHealth(runDir string, pollInterval time.Duration, jsonOutput bool) int {
	status, err := readHealthFile(runDir)
	if err != nil {
		if jsonOutput {
			fmt.Println(`{"status":"missing","error":"no health file found"}`)
		} else {
			fmt.Fprintln(os.Stderr, "daemon not running (no health file)")
		}
		return 1
	}

	staleThreshold := 2 * pollInterval
	age := time.Since(status.LastCycle)
	isStale := age > staleThreshold

	if jsonOutput {
		output := map[string]interface{}{
			"status":      status.Status,
			"last_cycle":  status.LastCycle.Format(time.RFC3339),
			"age":         age.String(),
			"stale":       isStale,
			"mean":        status.Mean,
			"peers_fresh": status.PeersFresh,
			"peers_seen":  status.PeersSeen,
			"samples":     status.Samples,
		}
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(data))
	} else {
		if isStale {
			fmt.Fprintf(os.Stderr, "daemon stale (last cycle %s ago, threshold %s)\n", age.Round(time.Second), staleThreshold)
		} else {
			fmt.Printf("daemon healthy (last cycle %s ago)\n", age.Round(time.Second))
			fmt.Printf("  network mean: %s (%d/%d peers fresh)\n", format.Percent(status.Mean), status.PeersFresh, status.PeersSeen)
			fmt.Printf("  history: %d samples\n", status.Samples)
		}
	}

	if isStale {
		return 1
	}
	return 0
}
