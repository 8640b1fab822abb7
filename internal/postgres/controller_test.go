package postgres

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/testutil"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

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

func TestPing(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	ctrl := NewController(rt, testTarget())
	require.NoError(t, ctrl.Ping(context.Background()))
	require.Equal(t, []string{"pg_isready", "-U", "postgres", "-d", "appdb", "-q"}, rt.Execs[0])
}

func TestPingNotAccepting(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnCommand("pg_isready", docker.ExecResult{ExitCode: 2})
	ctrl := NewController(rt, testTarget())

	err := ctrl.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsConnectivity(err))
}

func TestPingTransportFailureIsNotConnectivity(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.Handlers = append(rt.Handlers, testutil.ExecHandler{
		Match: func(cmd []string) bool { return cmd[0] == "pg_isready" },
		Err:   errors.New("container not running"),
	})
	ctrl := NewController(rt, testTarget())

	err := ctrl.Ping(context.Background())
	require.Error(t, err)
	assert.False(t, errdefs.IsConnectivity(err))
}

func TestQueryTrimsOutput(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnQuery("SELECT 1", " 1\n")
	ctrl := NewController(rt, testTarget())

	out, err := ctrl.Query(context.Background(), "SELECT 1;")
	require.NoError(t, err)
	assert.Equal(t, "1", out)
}

func TestQueryConnectionFailure(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnCommand("psql", docker.ExecResult{ExitCode: 2, Stderr: []byte("could not connect to server")})
	ctrl := NewController(rt, testTarget())

	_, err := ctrl.Query(context.Background(), "SELECT 1;")
	require.Error(t, err)
	assert.True(t, errdefs.IsConnectivity(err))
	assert.Contains(t, err.Error(), "could not connect")
}

func TestVersion(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnQuery("version()", "PostgreSQL 16.4 on x86_64-pc-linux-musl, compiled by gcc")
	ctrl := NewController(rt, testTarget())

	version, err := ctrl.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "16.4", version)
}

func TestSwitchWAL(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnQuery("pg_switch_wal", "0/2000078")
	ctrl := NewController(rt, testTarget())

	lsn, err := ctrl.SwitchWAL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.LSN(0x2000078), lsn)
}

func TestArchiverStatus(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnQuery("pg_stat_archiver", "42|000000010000000000000007|1|000000010000000000000003")
	rt.OnQuery("archive_mode", "on")
	rt.OnQuery("wal_level", "replica")
	rt.OnQuery("archive_command", "test ! -f /wal/%f && cp %p /wal/%f")
	ctrl := NewController(rt, testTarget())

	status, err := ctrl.ArchiverStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), status.ArchivedCount)
	assert.Equal(t, "000000010000000000000007", status.LastArchived)
	assert.Equal(t, int64(1), status.FailedCount)
	assert.Equal(t, "on", status.ArchiveMode)
	assert.Equal(t, "replica", status.WALLevel)
}

func TestDumpStreamsStdout(t *testing.T) {
	const dump = "CREATE TABLE t (id int);\nINSERT INTO t VALUES (1);\n"
	rt := &testutil.FakeRuntime{}
	rt.OnCommandFn("pg_dump", func(opts docker.ExecOptions) (*docker.ExecResult, error) {
		opts.Stdout.Write([]byte(dump))
		return &docker.ExecResult{ExitCode: 0}, nil
	})
	ctrl := NewController(rt, testTarget())

	var buf bytes.Buffer
	res, err := ctrl.Dump(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, dump, buf.String())

	cmd := strings.Join(rt.Execs[0], " ")
	assert.Contains(t, cmd, "--clean")
	assert.Contains(t, cmd, "--if-exists")
	assert.Contains(t, cmd, "--no-owner")
	assert.Contains(t, cmd, "--no-acl")
}

func TestRestoreStreamsStdin(t *testing.T) {
	var received bytes.Buffer
	rt := &testutil.FakeRuntime{}
	rt.OnCommandFn("psql", func(opts docker.ExecOptions) (*docker.ExecResult, error) {
		received.ReadFrom(opts.Stdin)
		return &docker.ExecResult{ExitCode: 0}, nil
	})
	ctrl := NewController(rt, testTarget())

	res, err := ctrl.Restore(context.Background(), strings.NewReader("SELECT 1;\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "SELECT 1;\n", received.String())
}

func TestPasswordFileFeedsEnvOnce(t *testing.T) {
	dir := t.TempDir()
	pwFile := filepath.Join(dir, "pgpass")
	require.NoError(t, os.WriteFile(pwFile, []byte("s3cret\n"), 0o600))

	target := testTarget()
	target.PasswordFile = pwFile

	var seenEnv []string
	rt := &testutil.FakeRuntime{}
	rt.OnCommandFn("psql", func(opts docker.ExecOptions) (*docker.ExecResult, error) {
		seenEnv = opts.Env
		return &docker.ExecResult{Stdout: []byte("1\n"), ExitCode: 0}, nil
	})
	ctrl := NewController(rt, target)

	_, err := ctrl.Query(context.Background(), "SELECT 1;")
	require.NoError(t, err)
	assert.Equal(t, []string{"PGPASSWORD=s3cret"}, seenEnv)
}

func TestPasswordFileMissing(t *testing.T) {
	target := testTarget()
	target.PasswordFile = filepath.Join(t.TempDir(), "absent")

	ctrl := NewController(&testutil.FakeRuntime{}, target)
	_, err := ctrl.Query(context.Background(), "SELECT 1;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password file")
}

func TestListDir(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnCommand("ls", docker.ExecResult{
		Stdout:   []byte("000000010000000000000002\n000000010000000000000003\n"),
		ExitCode: 0,
	})
	ctrl := NewController(rt, testTarget())

	names, err := ctrl.ListDir(context.Background(), "/var/lib/postgresql/wal-archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"000000010000000000000002", "000000010000000000000003"}, names)
}

func TestEnsureDirFailure(t *testing.T) {
	rt := &testutil.FakeRuntime{}
	rt.OnCommand("sh", docker.ExecResult{ExitCode: 1, Stderr: []byte("mkdir: permission denied")})
	ctrl := NewController(rt, testTarget())

	err := ctrl.EnsureDir(context.Background(), "/var/lib/postgresql/wal-archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
