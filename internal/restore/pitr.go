package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/wal"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// recoveryPlan is everything validation proved about a PITR request before
// any side effect: where replay starts and which archived segments feed it.
type recoveryPlan struct {
	label    *BackupLabel
	segments []models.WALSegment
	walDir   string
}

// RestorePITR rebuilds the data directory from a physical base backup and
// replays archived WAL up to target. A nil target replays to the end of the
// archive. The server itself performs the replay; drydock stages the
// segments, writes the recovery configuration, and observes the outcome.
func (e *Engine) RestorePITR(ctx context.Context, basePath, walDir string, target *models.RecoveryTarget) (*Result, error) {
	s := e.begin("restore-pitr")
	s.result.Kind = models.BackupKindPhysical
	s.result.Target = target

	s.enter(StateValidating)
	rec, err := e.validateArtifact(models.BackupKindPhysical, basePath)
	if err != nil {
		return s.fail(err)
	}
	s.result.Record = rec
	plan, err := e.planRecovery(basePath, walDir, target)
	if err != nil {
		return s.fail(err)
	}
	e.log.Info().
		Str("start_lsn", plan.label.StartLSN.String()).
		Str("start_segment", plan.label.StartSegment.Filename).
		Int("segments", len(plan.segments)).
		Msg("recovery plan validated")

	s.enter(StateSnapshotting)
	snap, err := e.snapshots.Snapshot(ctx, e.snapshotDir, "before point-in-time recovery")
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

	s.enter(StateRestoringBase)
	if err := e.unpackBaseArchive(ctx, basePath); err != nil {
		return s.fail(err)
	}

	s.enter(StateConfiguringRecovery)
	if err := e.configureRecovery(ctx, plan, target); err != nil {
		return s.fail(err)
	}

	s.enter(StateStarting)
	if err := e.rt.StartContainer(ctx, e.target.Container); err != nil {
		return s.fail(fmt.Errorf("%w: failed to start %s: %v", errdefs.ErrContainerState, e.target.Container, err))
	}

	result, err := e.verify(ctx, s)
	if err != nil {
		return result, err
	}
	if target != nil && target.Kind == models.RecoveryTargetTime {
		e.log.Info().
			Str("target_time", target.Value).
			Str("observed_now", result.ObservedTime).
			Msg("cross-check the server clock against the requested target")
	}
	return result, nil
}

// planRecovery validates the inputs and decides which segments will be
// staged. Nothing here mutates anything; a plan that cannot work fails the
// whole workflow before the snapshot is even taken.
func (e *Engine) planRecovery(basePath, walDir string, target *models.RecoveryTarget) (*recoveryPlan, error) {
	info, err := os.Stat(walDir)
	if err != nil {
		return nil, fmt.Errorf("%w: wal archive %s: %v", errdefs.ErrValidation, walDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: wal archive %s is not a directory", errdefs.ErrValidation, walDir)
	}

	label, err := ReadBackupLabel(basePath)
	if err != nil {
		return nil, err
	}

	if target != nil {
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", errdefs.ErrValidation, err)
		}
		if target.Kind == models.RecoveryTargetLSN {
			lsn, err := target.LSN()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errdefs.ErrValidation, err)
			}
			if lsn < label.StartLSN {
				return nil, fmt.Errorf("%w: target lsn %s predates the base backup start %s; use an older base backup",
					errdefs.ErrValidation, lsn, label.StartLSN)
			}
		}
	}

	archive, err := wal.LoadArchive(walDir)
	if err != nil {
		return nil, err
	}
	maxSeq, err := wal.VerifyContiguous(archive, label.StartSegment.Timeline, label.StartSegment.Seq)
	if err != nil {
		return nil, err
	}

	var segments []models.WALSegment
	for _, seg := range archive {
		if seg.Timeline == label.StartSegment.Timeline && seg.Seq >= label.StartSegment.Seq && seg.Seq <= maxSeq {
			segments = append(segments, seg)
		}
	}
	return &recoveryPlan{label: label, segments: segments, walDir: walDir}, nil
}

// configureRecovery stages the planned segments and flips the server into
// recovery mode. Segments are decompressed host-side into a temp directory
// and staged into a helper's layer, then the running helper copies them
// into the data directory, appends the recovery snippet to
// postgresql.auto.conf, and creates recovery.signal. Volume writes only
// ever come from a running helper: copying into the stopped target would
// land in its rw layer, never the volume.
func (e *Engine) configureRecovery(ctx context.Context, plan *recoveryPlan, target *models.RecoveryTarget) error {
	stage, err := os.MkdirTemp("", "drydock-recovery-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	walStage := filepath.Join(stage, "wal")
	if err := os.MkdirAll(walStage, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	for _, seg := range plan.segments {
		src, err := wal.FindSegmentFile(plan.walDir, seg)
		if err != nil {
			return err
		}
		if err := wal.DecompressSegmentTo(src, filepath.Join(walStage, seg.Filename)); err != nil {
			return err
		}
	}

	conf := buildRecoveryConf(e.target.DataDir, target)
	if err := os.WriteFile(filepath.Join(stage, "recovery.conf.in"), []byte(conf), 0o644); err != nil {
		return fmt.Errorf("failed to write recovery snippet: %w", err)
	}

	script := fmt.Sprintf(
		"mkdir -p /volume-data/%[1]s && cp /stage/wal/* /volume-data/%[1]s/ && "+
			"cat /stage/recovery.conf.in >> /volume-data/postgresql.auto.conf && "+
			"touch /volume-data/recovery.signal && chown -R %[2]s /volume-data",
		recoveryStageDir, e.target.DataOwner,
	)
	spec := docker.HelperSpec{
		Image: e.helperImage,
		Cmd:   []string{"sh", "-c", script},
		Mounts: []docker.HelperMount{
			{Volume: e.target.Volume, Target: "/volume-data"},
		},
		Stage: []docker.HelperStage{
			{HostPath: stage, Target: "/stage"},
		},
	}
	if err := e.rt.RunHelper(ctx, spec); err != nil {
		return fmt.Errorf("%w: failed to configure recovery: %v", errdefs.ErrDestructive, err)
	}

	e.log.Info().Int("segments", len(plan.segments)).Str("stage", recoveryStageDir).Msg("recovery configured")
	return nil
}
