package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

const DefaultFileName = "drydock.toml"

// Defaults returns the configuration every run starts from; values in the
// config file layer on top.
func Defaults() models.Config {
	return models.Config{
		Target: models.Target{
			Username:  "postgres",
			Database:  "postgres",
			DataDir:   "/var/lib/postgresql/data",
			DataOwner: "70:70",
		},
		Backup: models.BackupConfig{
			OutputDir:     "./backups",
			RetentionDays: 30,
		},
		WAL: models.WALConfig{
			ArchiveDir:          "./wal-archive",
			ContainerArchiveDir: "/var/lib/postgresql/wal-archive",
		},
		Safety: models.SafetyConfig{
			SnapshotDir: "./snapshots",
			HelperImage: "alpine:latest",
		},
		Readiness: models.ReadinessConfig{
			TimeoutSeconds:      300,
			PollIntervalSeconds: 5,
		},
		Logging: models.LoggingConfig{
			Dir: "./logs",
		},
	}
}

// Load reads the toml file at path over the defaults and validates the
// result. The returned config is treated as immutable for the whole run.
func Load(path string) (*models.Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found, run 'drydock init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func Validate(cfg *models.Config) error {
	if cfg.Target.Container == "" {
		return fmt.Errorf("target.container is required")
	}
	if cfg.Target.Volume == "" {
		return fmt.Errorf("target.volume is required")
	}
	if cfg.Target.Username == "" {
		return fmt.Errorf("target.username is required")
	}
	if cfg.Target.Database == "" {
		return fmt.Errorf("target.database is required")
	}
	if cfg.Target.DataDir == "" {
		return fmt.Errorf("target.data_dir is required")
	}
	if cfg.Readiness.PollIntervalSeconds <= 0 {
		return fmt.Errorf("readiness.poll_interval_seconds must be positive")
	}
	return nil
}

const skeleton = `# drydock configuration

[target]
# Name of the PostgreSQL container drydock manages. drydock never creates
# this container; it must already exist.
container = "postgres-db"
# Named volume holding the data directory.
volume = "postgres-data"
username = "postgres"
database = "postgres"
data_dir = "/var/lib/postgresql/data"
# uid:gid owning the data directory inside the container (70:70 for the
# alpine postgres images, 999:999 for the debian ones).
data_owner = "70:70"
# Optional file containing the database password. Read at execution time,
# never stored anywhere else.
# password_file = "/run/secrets/pg-password"

[backup]
output_dir = "./backups"
retention_days = 30
compress = false

[wal]
archive_dir = "./wal-archive"
container_archive_dir = "/var/lib/postgresql/wal-archive"
compress = false

[safety]
snapshot_dir = "./snapshots"
helper_image = "alpine:latest"

[readiness]
timeout_seconds = 300
poll_interval_seconds = 5

[logging]
dir = "./logs"

[runtime]
# prefer = "docker"   # or "podman"; empty means auto-detect
# socket_path = ""
`

// WriteSkeleton writes a commented starter config. Refuses to clobber an
// existing file.
func WriteSkeleton(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(skeleton), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
