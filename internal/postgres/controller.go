// Package postgres issues control commands to the PostgreSQL server running
// inside the target container. Everything goes through the container
// runtime's exec facility; drydock never opens a database connection of its
// own.
package postgres

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

type Controller struct {
	rt     docker.Runtime
	target models.Target
}

func NewController(rt docker.Runtime, target models.Target) *Controller {
	return &Controller{rt: rt, target: target}
}

// execEnv builds the PGPASSWORD environment for a single exec. The raw file
// contents are wiped as soon as the env string exists; nothing holds the
// password beyond the exec call.
func (c *Controller) execEnv() ([]string, error) {
	if c.target.PasswordFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.target.PasswordFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read password file: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	for i := range raw {
		raw[i] = 0
	}
	return []string{"PGPASSWORD=" + password}, nil
}

// Ping probes the server with pg_isready. A server that is not accepting
// connections reports ErrConnectivity; transport failures (exec could not
// run at all) surface as plain errors.
func (c *Controller) Ping(ctx context.Context) error {
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"pg_isready", "-U", c.target.Username, "-d", c.target.Database, "-q"},
	})
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", c.target.Container, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: pg_isready exit %d", errdefs.ErrConnectivity, res.ExitCode)
	}
	return nil
}

// Query runs a single statement through psql and returns its unaligned
// tuple-only output, trimmed.
func (c *Controller) Query(ctx context.Context, sql string) (string, error) {
	env, err := c.execEnv()
	if err != nil {
		return "", err
	}
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"psql", "-U", c.target.Username, "-d", c.target.Database,
			"-v", "ON_ERROR_STOP=1", "-t", "-A", "-c", sql},
		Env: env,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run query: %w", err)
	}
	if res.ExitCode != 0 {
		// psql exits 2 when it never reached the server.
		if res.ExitCode == 2 {
			return "", fmt.Errorf("%w: %s", errdefs.ErrConnectivity, strings.TrimSpace(string(res.Stderr)))
		}
		return "", fmt.Errorf("query failed (exit %d): %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// Version reports the server version number, e.g. "16.4".
func (c *Controller) Version(ctx context.Context) (string, error) {
	out, err := c.Query(ctx, "SELECT version();")
	if err != nil {
		return "", err
	}
	if strings.Contains(out, "PostgreSQL") {
		fields := strings.Fields(out)
		if len(fields) >= 2 {
			return strings.TrimSuffix(fields[1], ","), nil
		}
	}
	return "", fmt.Errorf("unexpected version output %q", out)
}

// currentTimeLayouts cover the timestamptz text forms psql prints.
var currentTimeLayouts = []string{
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05-07",
	time.RFC3339Nano,
}

// CurrentTime reports the server's now(), used to cross-check a time-based
// recovery target after replay.
func (c *Controller) CurrentTime(ctx context.Context) (time.Time, error) {
	out, err := c.Query(ctx, "SELECT now();")
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range currentTimeLayouts {
		if ts, err := time.Parse(layout, out); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp output %q", out)
}

// SwitchWAL forces a segment boundary so the segment in flight becomes
// archivable, and returns the switch position.
func (c *Controller) SwitchWAL(ctx context.Context) (models.LSN, error) {
	out, err := c.Query(ctx, "SELECT pg_switch_wal();")
	if err != nil {
		return 0, err
	}
	lsn, err := models.ParseLSN(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected pg_switch_wal output: %w", err)
	}
	return lsn, nil
}

// ArchiverStatus reads pg_stat_archiver plus the archiving settings.
// Read-only; safe against any reachable server.
func (c *Controller) ArchiverStatus(ctx context.Context) (*models.WALStatus, error) {
	out, err := c.Query(ctx, "SELECT archived_count || '|' || coalesce(last_archived_wal, '') || '|' || failed_count || '|' || coalesce(last_failed_wal, '') FROM pg_stat_archiver;")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(out, "|")
	if len(parts) != 4 {
		return nil, fmt.Errorf("unexpected pg_stat_archiver output %q", out)
	}
	archived, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected archived_count %q: %w", parts[0], err)
	}
	failed, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected failed_count %q: %w", parts[2], err)
	}

	status := &models.WALStatus{
		ArchivedCount: archived,
		LastArchived:  parts[1],
		FailedCount:   failed,
		LastFailed:    parts[3],
	}
	if status.ArchiveMode, err = c.Query(ctx, "SHOW archive_mode;"); err != nil {
		return nil, err
	}
	if status.WALLevel, err = c.Query(ctx, "SHOW wal_level;"); err != nil {
		return nil, err
	}
	if status.ArchiveCommand, err = c.Query(ctx, "SHOW archive_command;"); err != nil {
		return nil, err
	}
	return status, nil
}

// Dump streams a plain-format pg_dump of the target database to w. The
// result carries pg_dump's exit code and stderr; a non-zero exit is the
// caller's to judge, not an error here.
func (c *Controller) Dump(ctx context.Context, w io.Writer) (*docker.ExecResult, error) {
	env, err := c.execEnv()
	if err != nil {
		return nil, err
	}
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"pg_dump", "-U", c.target.Username, "-d", c.target.Database,
			"--clean", "--if-exists", "--no-owner", "--no-acl"},
		Env:    env,
		Stdout: w,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run pg_dump: %w", err)
	}
	return res, nil
}

// Restore streams a plain-format dump from r into psql on the running
// server. SQL-level errors land on stderr in the result; psql itself exits
// zero for them.
func (c *Controller) Restore(ctx context.Context, r io.Reader) (*docker.ExecResult, error) {
	env, err := c.execEnv()
	if err != nil {
		return nil, err
	}
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd:   []string{"psql", "-U", c.target.Username, "-d", c.target.Database},
		Env:   env,
		Stdin: r,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run psql: %w", err)
	}
	return res, nil
}

// BaseBackup runs pg_basebackup into destDir inside the container,
// producing a single gzipped tar of the data directory with the WAL needed
// to make it consistent included.
func (c *Controller) BaseBackup(ctx context.Context, destDir string) (*docker.ExecResult, error) {
	env, err := c.execEnv()
	if err != nil {
		return nil, err
	}
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"pg_basebackup", "-U", c.target.Username,
			"-D", destDir, "-Ft", "-z", "-X", "fetch", "-c", "fast"},
		Env: env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run pg_basebackup: %w", err)
	}
	return res, nil
}

// EnsureDir creates a directory inside the container and hands it to the
// data owner so the server's own processes can write there. Idempotent.
func (c *Controller) EnsureDir(ctx context.Context, path string) error {
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"sh", "-c", fmt.Sprintf("mkdir -p %s && chown %s %s", path, c.target.DataOwner, path)},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s in container: %w", path, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to create %s in container (exit %d): %s", path, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// RemoveDir deletes a container-side directory created by drydock, such as
// the temporary base backup location.
func (c *Controller) RemoveDir(ctx context.Context, path string) error {
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"rm", "-rf", path},
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s in container: %w", path, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to remove %s in container (exit %d): %s", path, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// ListDir names the entries of a container-side directory, one per line.
func (c *Controller) ListDir(ctx context.Context, path string) ([]string, error) {
	res, err := c.rt.Exec(ctx, c.target.Container, docker.ExecOptions{
		Cmd: []string{"ls", "-1", path},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s in container: %w", path, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list %s in container (exit %d): %s", path, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	var names []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}
