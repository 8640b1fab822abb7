package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureWritableDir resolves path, creates the directory if needed, and
// proves a file can be created inside it.
func EnsureWritableDir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", absPath, err)
	}

	probe, err := os.CreateTemp(absPath, ".probe-*")
	if err != nil {
		return "", fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return absPath, nil
}
