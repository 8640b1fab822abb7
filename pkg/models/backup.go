package models

import "time"

type BackupKind string

const (
	BackupKindLogical  BackupKind = "logical"
	BackupKindPhysical BackupKind = "physical"
)

type BackupStatus string

const (
	BackupStatusInProgress BackupStatus = "in_progress"
	BackupStatusCompleted  BackupStatus = "completed"
	BackupStatusFailed     BackupStatus = "failed"
)

// BackupRecord is the sidecar metadata persisted next to every backup
// artifact. A record reaches exactly one terminal status: completed records
// always point at an artifact that exists with a non-zero size, failed
// records carry the reason.
type BackupRecord struct {
	ID              string       `json:"id"`
	Kind            BackupKind   `json:"kind"`
	Container       string       `json:"container"`
	Database        string       `json:"database"`
	PostgresVersion string       `json:"postgres_version,omitempty"`
	StoragePath     string       `json:"storage_path"`
	SizeBytes       int64        `json:"size_bytes"`
	Compressed      bool         `json:"compressed"`
	Status          BackupStatus `json:"status"`
	Error           string       `json:"error,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
}
