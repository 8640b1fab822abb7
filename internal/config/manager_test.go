package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zafrullakhan001/drydock/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drydock.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() string {
	return `
[target]
container = "pg-main"
volume = "pg-main-data"
`
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "postgres", cfg.Target.Username)
	assert.Equal(t, "postgres", cfg.Target.Database)
	assert.Equal(t, "/var/lib/postgresql/data", cfg.Target.DataDir)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Equal(t, "alpine:latest", cfg.Safety.HelperImage)
	assert.Equal(t, 300, cfg.Readiness.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Readiness.PollIntervalSeconds)
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[target]
container = "pg-main"
volume = "pg-main-data"
database = "orders"

[backup]
retention_days = 7
compress = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// from the file
	assert.Equal(t, "pg-main", cfg.Target.Container)
	assert.Equal(t, "orders", cfg.Target.Database)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.True(t, cfg.Backup.Compress)

	// untouched defaults survive
	assert.Equal(t, "postgres", cfg.Target.Username)
	assert.Equal(t, "/var/lib/postgresql/data", cfg.Target.DataDir)
	assert.Equal(t, "./wal-archive", cfg.WAL.ArchiveDir)
	assert.Equal(t, 300, cfg.Readiness.TimeoutSeconds)
}

func TestLoadMissingFilePointsAtInit(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drydock init")
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[target\ncontainer =")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode config")
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, `
[target]
container = "pg-main"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.volume is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(cfg *models.Config) {},
		},
		{
			name:    "missing container",
			mutate:  func(cfg *models.Config) { cfg.Target.Container = "" },
			wantErr: "target.container is required",
		},
		{
			name:    "missing volume",
			mutate:  func(cfg *models.Config) { cfg.Target.Volume = "" },
			wantErr: "target.volume is required",
		},
		{
			name:    "missing username",
			mutate:  func(cfg *models.Config) { cfg.Target.Username = "" },
			wantErr: "target.username is required",
		},
		{
			name:    "missing database",
			mutate:  func(cfg *models.Config) { cfg.Target.Database = "" },
			wantErr: "target.database is required",
		},
		{
			name:    "missing data dir",
			mutate:  func(cfg *models.Config) { cfg.Target.DataDir = "" },
			wantErr: "target.data_dir is required",
		},
		{
			name:    "zero poll interval",
			mutate:  func(cfg *models.Config) { cfg.Readiness.PollIntervalSeconds = 0 },
			wantErr: "poll_interval_seconds must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Target.Container = "pg-main"
			cfg.Target.Volume = "pg-main-data"
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWriteSkeletonProducesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drydock.toml")

	require.NoError(t, WriteSkeleton(path))

	// the skeleton must parse and pass validation as written
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres-db", cfg.Target.Container)
	assert.Equal(t, "postgres-data", cfg.Target.Volume)
}

func TestWriteSkeletonRefusesToClobber(t *testing.T) {
	path := writeConfig(t, validConfig())

	err := WriteSkeleton(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// the original content is untouched
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, validConfig(), string(data))
}
