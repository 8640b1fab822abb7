package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON persists v as indented JSON with an atomic rename, the format
// every sidecar file (backup records, capture manifests, snapshots) uses.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return AtomicWriteFile(path, data, 0o644)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
