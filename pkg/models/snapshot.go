package models

import "time"

// SafetySnapshot is a full tar.gz copy of the data volume taken before any
// destructive restore step. Snapshots are never deleted automatically.
type SafetySnapshot struct {
	ID          string    `json:"id"`
	VolumeName  string    `json:"volume_name"`
	ArchivePath string    `json:"archive_path"`
	SizeBytes   int64     `json:"size_bytes"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
