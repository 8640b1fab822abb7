package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/testutil"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// fixtureDump is a dump of one table holding a hundred rows, the shape the
// engine sees from pg_dump.
var fixtureDump = func() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE accounts (id int, name text);\n")
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&b, "INSERT INTO accounts VALUES (%d, 'user-%d');\n", i, i)
	}
	return b.String()
}()

func testTarget() models.Target {
	return models.Target{
		Container: "pg",
		Volume:    "pg-data",
		Username:  "postgres",
		Database:  "appdb",
		DataDir:   "/var/lib/postgresql/data",
		DataOwner: "70:70",
	}
}

func newTestEngine(rt *testutil.FakeRuntime) *Engine {
	target := testTarget()
	return NewEngine(rt, postgres.NewController(rt, target), target, zerolog.Nop())
}

func scriptVersion(rt *testutil.FakeRuntime) {
	rt.OnQuery("version()", "PostgreSQL 16.4 on x86_64-pc-linux-musl")
}

func TestCreateLogicalCompleted(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.OnCommandFn("pg_dump", func(opts docker.ExecOptions) (*docker.ExecResult, error) {
		opts.Stdout.Write([]byte(fixtureDump))
		return &docker.ExecResult{ExitCode: 0}, nil
	})
	engine := newTestEngine(rt)
	outputDir := t.TempDir()

	rec, err := engine.CreateLogical(context.Background(), outputDir, 30, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, models.BackupStatusCompleted, rec.Status)
	assert.Equal(t, models.BackupKindLogical, rec.Kind)
	assert.Equal(t, "16.4", rec.PostgresVersion)
	assert.Greater(t, rec.SizeBytes, int64(0))
	assert.NotNil(t, rec.CompletedAt)

	// the artifact really holds the dump
	data, err := os.ReadFile(rec.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, fixtureDump, string(data))

	// and the sidecar agrees with the returned record
	saved, err := ReadRecord(filepath.Dir(rec.StoragePath))
	require.NoError(t, err)
	assert.Equal(t, rec.Status, saved.Status)
	assert.Equal(t, rec.SizeBytes, saved.SizeBytes)
}

func TestCreateLogicalCompressed(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.OnCommandFn("pg_dump", func(opts docker.ExecOptions) (*docker.ExecResult, error) {
		opts.Stdout.Write([]byte(fixtureDump))
		return &docker.ExecResult{ExitCode: 0}, nil
	})
	engine := newTestEngine(rt)

	rec, err := engine.CreateLogical(context.Background(), t.TempDir(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusCompleted, rec.Status)
	assert.True(t, strings.HasSuffix(rec.StoragePath, ".gz"))

	f, err := os.Open(rec.StoragePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var out strings.Builder
	_, err = out.ReadFrom(gz)
	require.NoError(t, err)
	assert.Equal(t, fixtureDump, out.String())
}

func TestCreateLogicalDumpFailureIsReportedNotFatal(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.OnCommand("pg_dump", docker.ExecResult{
		ExitCode: 1,
		Stderr:   []byte("pg_dump: error: connection to server was lost"),
	})
	engine := newTestEngine(rt)

	rec, err := engine.CreateLogical(context.Background(), t.TempDir(), 30, false)
	require.NoError(t, err, "a failing dump is reported through the record, not an error")
	require.NotNil(t, rec)
	assert.Equal(t, models.BackupStatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "connection to server was lost")
	assert.Zero(t, rec.SizeBytes)
}

func TestCreateLogicalUnreachableServer(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnCommand("pg_isready", docker.ExecResult{ExitCode: 2})
	engine := newTestEngine(rt)

	rec, err := engine.CreateLogical(context.Background(), t.TempDir(), 30, false)
	require.Error(t, err)
	assert.True(t, errdefs.IsConnectivity(err))
	assert.Nil(t, rec)
	assert.Empty(t, rt.CallsWithPrefix("exec:pg_dump"))
}

func TestCreateLogicalEmptyDumpIsFailed(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.OnCommand("pg_dump", docker.ExecResult{ExitCode: 0})
	engine := newTestEngine(rt)

	rec, err := engine.CreateLogical(context.Background(), t.TempDir(), 30, false)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "empty")
}

func TestCreatePhysical(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.CopyFromFn = func(container, src, hostDir string) error {
		return os.WriteFile(filepath.Join(hostDir, "base.tar.gz"), []byte("tarball-bytes"), 0o644)
	}
	engine := newTestEngine(rt)

	rec, err := engine.CreatePhysical(context.Background(), t.TempDir(), 30)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusCompleted, rec.Status)
	assert.Equal(t, models.BackupKindPhysical, rec.Kind)
	assert.True(t, rec.Compressed)
	assert.FileExists(t, rec.StoragePath)

	// pg_basebackup ran with the tar+gzip+fetch flags and the staging
	// directory was removed afterwards
	var sawBaseBackup, sawCleanup bool
	for _, cmd := range rt.Execs {
		joined := strings.Join(cmd, " ")
		if cmd[0] == "pg_basebackup" {
			sawBaseBackup = true
			assert.Contains(t, joined, "-Ft")
			assert.Contains(t, joined, "-X fetch")
		}
		if cmd[0] == "rm" && strings.Contains(joined, "drydock-basebackup") {
			sawCleanup = true
		}
	}
	assert.True(t, sawBaseBackup)
	assert.True(t, sawCleanup)
}

func TestCreatePhysicalCleansUpStagingOnFailure(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	scriptVersion(rt)
	rt.OnCommand("pg_basebackup", docker.ExecResult{
		ExitCode: 1,
		Stderr:   []byte("pg_basebackup: error: could not initiate base backup"),
	})
	engine := newTestEngine(rt)

	rec, err := engine.CreatePhysical(context.Background(), t.TempDir(), 30)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "could not initiate base backup")
	assert.NotEmpty(t, rt.CallsWithPrefix("exec:rm"), "staging directory must be removed on failure too")
}

func TestPruneRemovesOnlyStrictlyOlder(t *testing.T) {
	outputDir := t.TempDir()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	mkBackup := func(id string, createdAt time.Time) {
		dir := filepath.Join(outputDir, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		rec := &models.BackupRecord{
			ID:          id,
			Kind:        models.BackupKindLogical,
			Status:      models.BackupStatusCompleted,
			StoragePath: filepath.Join(dir, "dump.sql"),
			SizeBytes:   10,
			CreatedAt:   createdAt,
		}
		require.NoError(t, os.WriteFile(rec.StoragePath, []byte("0123456789"), 0o644))
		require.NoError(t, writeRecord(dir, rec))
	}

	mkBackup("old", now.AddDate(0, 0, -31))
	mkBackup("edge", now.AddDate(0, 0, -30)) // exactly 30 days: kept
	mkBackup("fresh", now.AddDate(0, 0, -1))

	removed, err := Prune(outputDir, 30, now)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "old", removed[0].ID)

	assert.NoDirExists(t, filepath.Join(outputDir, "old"))
	assert.DirExists(t, filepath.Join(outputDir, "edge"))
	assert.DirExists(t, filepath.Join(outputDir, "fresh"))
}

func TestPruneDisabled(t *testing.T) {
	outputDir := t.TempDir()
	removed, err := Prune(outputDir, 0, time.Now())
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestListNewestFirst(t *testing.T) {
	outputDir := t.TempDir()
	for i, id := range []string{"a", "b", "c"} {
		dir := filepath.Join(outputDir, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		rec := &models.BackupRecord{
			ID:        id,
			CreatedAt: time.Date(2026, 8, 20+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, writeRecord(dir, rec))
	}

	records, err := List(outputDir)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	records, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, records)
}
