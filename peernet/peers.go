// Package peernet discovers the peers sharing a datasites root and
// aggregates their published CPU readings into a network mean.
//
// The datasites root holds one directory per peer. Any peer may or may
// not run the tracker, publish garbage, or have stopped publishing; all
// of that is tolerated per peer, and only an inaccessible root itself is
// a hard error.
package peernet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrRootAccess reports that the datasites root could not be listed.
// Without the root there is no network to speak of, so callers treat
// this as fatal for the cycle rather than skipping anything.
var ErrRootAccess = errors.New("peernet: datasites root inaccessible")

// Enumerate lists the peers under root, one per immediate subdirectory.
// Symlinks to directories count; regular files and dangling links do
// not. Names come back in lexical order.
func Enumerate(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootAccess, root, err)
	}

	peers := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			peers = append(peers, entry.Name())
			continue
		}
		if entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		// The sync layer materializes some datasites as links; follow
		// them and keep the ones that resolve to directories.
		info, err := os.Stat(filepath.Join(root, entry.Name()))
		if err == nil && info.IsDir() {
			peers = append(peers, entry.Name())
		}
	}
	return peers, nil
}
