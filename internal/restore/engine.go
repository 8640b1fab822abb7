// Package restore drives the recovery workflows: full restores from logical
// or physical backups, and point-in-time recovery from a base backup plus
// archived WAL. Each workflow is an explicit state machine; the Result
// carries the trace of states it walked through and the safety snapshot
// taken before anything destructive happened.
package restore

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zafrullakhan001/drydock/internal/backup"
	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/readiness"
	"github.com/zafrullakhan001/drydock/internal/safety"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

type Options struct {
	Runtime      docker.Runtime
	Controller   *postgres.Controller
	Target       models.Target
	Snapshots    *safety.Manager
	Monitor      *readiness.Monitor
	HelperImage  string
	SnapshotDir  string
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Log          zerolog.Logger
	// OnState observes every state transition in order; the CLI renders
	// its progress trace from it. Optional.
	OnState func(State)
}

type Engine struct {
	rt           docker.Runtime
	ctrl         *postgres.Controller
	target       models.Target
	snapshots    *safety.Manager
	monitor      *readiness.Monitor
	helperImage  string
	snapshotDir  string
	readyTimeout time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	onState      func(State)
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		rt:           opts.Runtime,
		ctrl:         opts.Controller,
		target:       opts.Target,
		snapshots:    opts.Snapshots,
		monitor:      opts.Monitor,
		helperImage:  opts.HelperImage,
		snapshotDir:  opts.SnapshotDir,
		readyTimeout: opts.ReadyTimeout,
		pollInterval: opts.PollInterval,
		log:          opts.Log,
		onState:      opts.OnState,
	}
}

// RestoreFull restores the database from a full backup. Logical restores
// import into the running server; physical restores stop the container and
// replace the data volume, always behind a safety snapshot.
func (e *Engine) RestoreFull(ctx context.Context, kind models.BackupKind, backupPath string) (*Result, error) {
	s := e.begin("restore-full")
	s.result.Kind = kind

	s.enter(StateValidating)
	rec, err := e.validateArtifact(kind, backupPath)
	if err != nil {
		return s.fail(err)
	}
	s.result.Record = rec

	switch kind {
	case models.BackupKindLogical:
		return e.restoreLogical(ctx, s, backupPath)
	case models.BackupKindPhysical:
		return e.restorePhysical(ctx, s, backupPath)
	default:
		return s.fail(fmt.Errorf("%w: unknown backup kind %q", errdefs.ErrValidation, kind))
	}
}

// validateArtifact proves the artifact is present and plausible before any
// side effect. A sidecar record next to it, when present, must agree on the
// kind and report a completed backup; it is returned so the result can say
// which backup the data came from.
func (e *Engine) validateArtifact(kind models.BackupKind, backupPath string) (*models.BackupRecord, error) {
	info, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("%w: backup artifact %s: %v", errdefs.ErrValidation, backupPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory, expected a backup artifact", errdefs.ErrValidation, backupPath)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: backup artifact %s is empty", errdefs.ErrValidation, backupPath)
	}
	rec, err := backup.ReadRecord(filepath.Dir(backupPath))
	if err != nil {
		return nil, nil
	}
	if rec.Kind != kind {
		return nil, fmt.Errorf("%w: %s records a %s backup, not %s", errdefs.ErrValidation, backup.RecordFile, rec.Kind, kind)
	}
	if rec.Status != models.BackupStatusCompleted {
		return nil, fmt.Errorf("%w: backup %s never completed (status %s)", errdefs.ErrValidation, rec.ID, rec.Status)
	}
	return rec, nil
}

func (e *Engine) restoreLogical(ctx context.Context, s *session, backupPath string) (*Result, error) {
	if err := e.ctrl.Ping(ctx); err != nil {
		return s.fail(err)
	}

	s.enter(StateImporting)

	f, err := os.Open(backupPath)
	if err != nil {
		return s.fail(fmt.Errorf("failed to open dump: %w", err))
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(backupPath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return s.fail(fmt.Errorf("%w: %s is not a gzipped dump: %v", errdefs.ErrValidation, backupPath, err))
		}
		defer gz.Close()
		r = gz
	}

	res, err := e.ctrl.Restore(ctx, r)
	if err != nil {
		return s.fail(err)
	}
	if res.ExitCode != 0 {
		return s.fail(fmt.Errorf("psql import exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}
	if errs := sqlErrorLines(res.Stderr); len(errs) > 0 {
		s.warn("import finished with %d sql error(s); first: %s", len(errs), errs[0])
	}

	return e.verify(ctx, s)
}

func (e *Engine) restorePhysical(ctx context.Context, s *session, backupPath string) (*Result, error) {
	s.enter(StateSnapshotting)
	snap, err := e.snapshots.Snapshot(ctx, e.snapshotDir, "before full physical restore")
	if err != nil {
		return s.fail(fmt.Errorf("refusing to continue without a safety snapshot: %w", err))
	}
	s.result.Snapshot = snap

	s.enter(StateStopped)
	if err := e.rt.StopContainer(ctx, e.target.Container); err != nil {
		return s.fail(fmt.Errorf("%w: failed to stop %s: %v", errdefs.ErrContainerState, e.target.Container, err))
	}

	s.enter(StateClearing)
	if err := e.clearVolume(ctx); err != nil {
		return s.fail(err)
	}

	s.enter(StateCopying)
	if err := e.unpackBaseArchive(ctx, backupPath); err != nil {
		return s.fail(err)
	}

	s.enter(StateStarting)
	if err := e.rt.StartContainer(ctx, e.target.Container); err != nil {
		return s.fail(fmt.Errorf("%w: failed to start %s: %v", errdefs.ErrContainerState, e.target.Container, err))
	}

	return e.verify(ctx, s)
}

// clearVolume empties the data volume through a helper container. This is
// the point of no return: from here until the new data directory is in
// place, the snapshot is the only way back.
func (e *Engine) clearVolume(ctx context.Context) error {
	spec := docker.HelperSpec{
		Image: e.helperImage,
		Cmd:   []string{"sh", "-c", "find /volume-data -mindepth 1 -delete"},
		Mounts: []docker.HelperMount{
			{Volume: e.target.Volume, Target: "/volume-data"},
		},
	}
	if err := e.rt.RunHelper(ctx, spec); err != nil {
		return fmt.Errorf("%w: failed to clear volume %s: %v", errdefs.ErrDestructive, e.target.Volume, err)
	}
	return nil
}

// unpackBaseArchive untars the base backup into the emptied volume and
// hands the tree to the data owner. The archive is staged into the helper's
// layer through the runtime copy interface, so nothing assumes the daemon
// can see drydock's filesystem. The helper runs as root, so ownership and
// the 700 mode the server insists on must be restored by hand.
func (e *Engine) unpackBaseArchive(ctx context.Context, backupPath string) error {
	name := filepath.Base(backupPath)
	script := fmt.Sprintf("tar xzf '/restore/%s' -C /volume-data && chown -R %s /volume-data && chmod 700 /volume-data",
		name, e.target.DataOwner)
	spec := docker.HelperSpec{
		Image: e.helperImage,
		Cmd:   []string{"sh", "-c", script},
		Mounts: []docker.HelperMount{
			{Volume: e.target.Volume, Target: "/volume-data"},
		},
		Stage: []docker.HelperStage{
			{HostPath: backupPath, Target: "/restore/" + name},
		},
	}
	if err := e.rt.RunHelper(ctx, spec); err != nil {
		return fmt.Errorf("%w: failed to unpack base backup into %s: %v", errdefs.ErrDestructive, e.target.Volume, err)
	}
	return nil
}

// verify drives the shared tail of every workflow: wait for the server to
// accept connections, then prove it answers queries, not merely opens
// sockets.
func (e *Engine) verify(ctx context.Context, s *session) (*Result, error) {
	s.enter(StateAwaitingReady)
	ready, waited, err := e.monitor.WaitUntilReady(ctx, e.readyTimeout, e.pollInterval)
	if err != nil {
		return s.fail(err)
	}
	if !ready {
		return s.fail(fmt.Errorf("%w: server not ready after %s", errdefs.ErrTimeout, waited.Round(time.Millisecond)))
	}

	s.enter(StateVerifying)
	version, err := e.ctrl.Version(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("server accepts connections but will not answer queries: %w", err))
	}
	s.result.PostgresVersion = version
	if observed, err := e.ctrl.CurrentTime(ctx); err == nil {
		s.result.ObservedTime = observed.Format(time.RFC3339)
	}

	return s.finish(), nil
}

// sqlErrorLines picks the ERROR lines out of a psql stderr stream. psql
// exits zero for SQL-level errors, so these are the only trace an import
// leaves of objects it could not recreate.
func sqlErrorLines(stderr []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(stderr), "\n") {
		if strings.Contains(line, "ERROR:") {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}
