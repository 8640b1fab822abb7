// Package logging writes the structured journal for each workflow
// invocation. Console output stays human-oriented; the run log is the
// machine-readable record of what actually happened.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type RunLog struct {
	zerolog.Logger

	path string
	file *os.File
}

// Open creates <dir>/<workflow>-<timestamp>.log.json and returns a logger
// emitting JSON events to it.
func Open(dir, workflow string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log.json", workflow, time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}

	logger := zerolog.New(file).With().Timestamp().Str("workflow", workflow).Logger()

	return &RunLog{Logger: logger, path: path, file: file}, nil
}

func (r *RunLog) Path() string {
	return r.path
}

func (r *RunLog) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Discard returns a run log that drops every event.
func Discard() *RunLog {
	return &RunLog{Logger: zerolog.New(io.Discard)}
}
