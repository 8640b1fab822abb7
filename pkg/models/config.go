package models

type Config struct {
	Target    Target          `toml:"target" json:"target"`
	Backup    BackupConfig    `toml:"backup" json:"backup"`
	WAL       WALConfig       `toml:"wal" json:"wal"`
	Safety    SafetyConfig    `toml:"safety" json:"safety"`
	Readiness ReadinessConfig `toml:"readiness" json:"readiness"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
	Runtime   RuntimeConfig   `toml:"runtime" json:"runtime"`
}

type BackupConfig struct {
	OutputDir     string `toml:"output_dir" json:"output_dir"`
	RetentionDays int    `toml:"retention_days" json:"retention_days"`
	Compress      bool   `toml:"compress" json:"compress"`
}

type WALConfig struct {
	ArchiveDir          string `toml:"archive_dir" json:"archive_dir"`
	ContainerArchiveDir string `toml:"container_archive_dir" json:"container_archive_dir"`
	Compress            bool   `toml:"compress" json:"compress"`
}

type SafetyConfig struct {
	SnapshotDir string `toml:"snapshot_dir" json:"snapshot_dir"`
	HelperImage string `toml:"helper_image" json:"helper_image"`
}

type ReadinessConfig struct {
	TimeoutSeconds      int `toml:"timeout_seconds" json:"timeout_seconds"`
	PollIntervalSeconds int `toml:"poll_interval_seconds" json:"poll_interval_seconds"`
}

type LoggingConfig struct {
	Dir string `toml:"dir" json:"dir"`
}

type RuntimeConfig struct {
	Prefer     string `toml:"prefer" json:"prefer"`
	SocketPath string `toml:"socket_path" json:"socket_path"`
}
