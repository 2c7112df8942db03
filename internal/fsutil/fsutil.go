// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
	"strconv"
)

// EnsureDir creates the directory and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// FileToken stats a stage input file and returns its size as a fingerprint
// token. Stages call it in their validate phase, so a grown or replaced
// input devalidates every cached result built from it, and a missing input
// aborts the run before anything executes.
func FileToken(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("input file %s: %w", path, err)
	}
	return strconv.FormatInt(info.Size(), 10), nil
}
