package models

import "time"

// WALSegment describes one archived write-ahead-log segment. Timeline and
// Seq are decoded from the 24-hex-digit segment filename; segments on the
// same timeline are contiguous when Seq increases by exactly one.
type WALSegment struct {
	Filename   string    `json:"filename"`
	Timeline   uint32    `json:"timeline"`
	Seq        uint64    `json:"seq"`
	SizeBytes  int64     `json:"size_bytes"`
	Compressed bool      `json:"compressed"`
	ArchivedAt time.Time `json:"archived_at"`
}

// CaptureResult is the manifest written after each wal capture run.
type CaptureResult struct {
	Dir        string       `json:"dir"`
	SwitchLSN  string       `json:"switch_lsn"`
	Segments   []WALSegment `json:"segments"`
	SizeBytes  int64        `json:"size_bytes"`
	CapturedAt time.Time    `json:"captured_at"`
}

// WALStatus reports the server's archiving state, read-only.
type WALStatus struct {
	ArchiveMode    string `json:"archive_mode"`
	WALLevel       string `json:"wal_level"`
	ArchiveCommand string `json:"archive_command"`
	ArchivedCount  int64  `json:"archived_count"`
	FailedCount    int64  `json:"failed_count"`
	LastArchived   string `json:"last_archived,omitempty"`
	LastFailed     string `json:"last_failed,omitempty"`
}

// WALSettings is the server configuration continuous archiving requires.
// Setup reports these; applying them (and the restart that follows) is the
// operator's call, never drydock's.
type WALSettings struct {
	WALLevel       string `json:"wal_level"`
	ArchiveMode    string `json:"archive_mode"`
	ArchiveCommand string `json:"archive_command"`
	MaxWALSenders  int    `json:"max_wal_senders"`
	WALKeepSize    string `json:"wal_keep_size"`
}
