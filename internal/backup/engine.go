// Package backup produces full backups of the target database: logical
// dumps through pg_dump and physical base backups through pg_basebackup.
// Every artifact gets a sidecar record; a record is only ever marked
// completed once the artifact is on disk with a non-zero size.
package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucsky/cuid"
	"github.com/rs/zerolog"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/utils"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

const (
	logicalArtifact  = "dump.sql"
	physicalArtifact = "base.tar.gz"
)

type Engine struct {
	rt     docker.Runtime
	ctrl   *postgres.Controller
	target models.Target
	log    zerolog.Logger
}

func NewEngine(rt docker.Runtime, ctrl *postgres.Controller, target models.Target, log zerolog.Logger) *Engine {
	return &Engine{rt: rt, ctrl: ctrl, target: target, log: log}
}

func newRecordID(kind models.BackupKind) string {
	return fmt.Sprintf("%s-%s-%s", kind, time.Now().Format("20060102-150405"), cuid.Slug())
}

// CreateLogical streams a pg_dump of the target database to
// <outputDir>/<id>/dump.sql, optionally gzipped. A failing dump is reported
// through the record's status, not as an error: the caller decides how bad
// that is. After a completed backup, records older than retentionDays are
// pruned from outputDir.
func (e *Engine) CreateLogical(ctx context.Context, outputDir string, retentionDays int, compress bool) (*models.BackupRecord, error) {
	if err := e.ctrl.Ping(ctx); err != nil {
		return nil, err
	}
	outputDir, err := utils.EnsureWritableDir(outputDir)
	if err != nil {
		return nil, err
	}

	rec := e.newRecord(ctx, models.BackupKindLogical)
	rec.Compressed = compress

	dir := filepath.Join(outputDir, rec.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	rec.StoragePath = filepath.Join(dir, logicalArtifact)
	if compress {
		rec.StoragePath += ".gz"
	}
	if err := writeRecord(dir, rec); err != nil {
		return nil, err
	}

	res, err := e.runDump(ctx, rec.StoragePath, compress)
	if err != nil {
		e.finalize(rec, dir, err.Error())
		return rec, err
	}
	if res.ExitCode != 0 {
		diag := fmt.Sprintf("pg_dump exit %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		e.finalize(rec, dir, diag)
		e.log.Error().Str("id", rec.ID).Str("diag", diag).Msg("logical backup failed")
		return rec, nil
	}

	e.finalize(rec, dir, "")
	if rec.Status == models.BackupStatusCompleted {
		e.prune(outputDir, retentionDays)
	}
	return rec, nil
}

// runDump owns the artifact file handle and the optional gzip layer for the
// duration of one pg_dump.
func (e *Engine) runDump(ctx context.Context, path string, compress bool) (*docker.ExecResult, error) {
	artifact, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer artifact.Close()

	var w io.Writer = artifact
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(artifact)
		w = gz
	}

	res, err := e.ctrl.Dump(ctx, w)
	if gz != nil {
		if cerr := gz.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finish compressed dump: %w", cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	if cerr := artifact.Close(); cerr != nil {
		return nil, fmt.Errorf("failed to close backup file: %w", cerr)
	}
	return res, nil
}

// CreatePhysical runs pg_basebackup into a temporary directory inside the
// container, copies the resulting archive out to <outputDir>/<id>/, and
// removes the temporary directory whatever the outcome. Like CreateLogical
// it prunes expired records after a completed backup.
func (e *Engine) CreatePhysical(ctx context.Context, outputDir string, retentionDays int) (*models.BackupRecord, error) {
	if err := e.ctrl.Ping(ctx); err != nil {
		return nil, err
	}
	outputDir, err := utils.EnsureWritableDir(outputDir)
	if err != nil {
		return nil, err
	}

	rec := e.newRecord(ctx, models.BackupKindPhysical)
	rec.Compressed = true // pg_basebackup -z

	dir := filepath.Join(outputDir, rec.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	rec.StoragePath = filepath.Join(dir, physicalArtifact)
	if err := writeRecord(dir, rec); err != nil {
		return nil, err
	}

	tmpDir := "/tmp/drydock-basebackup-" + rec.ID
	defer func() {
		if err := e.ctrl.RemoveDir(ctx, tmpDir); err != nil {
			e.log.Warn().Err(err).Str("dir", tmpDir).Msg("failed to clean up base backup staging directory")
		}
	}()

	res, err := e.ctrl.BaseBackup(ctx, tmpDir)
	if err != nil {
		e.finalize(rec, dir, err.Error())
		return rec, err
	}
	if res.ExitCode != 0 {
		diag := fmt.Sprintf("pg_basebackup exit %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		e.finalize(rec, dir, diag)
		e.log.Error().Str("id", rec.ID).Str("diag", diag).Msg("physical backup failed")
		return rec, nil
	}

	if err := e.rt.CopyFrom(ctx, e.target.Container, tmpDir, dir); err != nil {
		err = fmt.Errorf("failed to copy base backup out of container: %w", err)
		e.finalize(rec, dir, err.Error())
		return rec, err
	}

	e.finalize(rec, dir, "")
	if rec.Status == models.BackupStatusCompleted {
		e.prune(outputDir, retentionDays)
	}
	return rec, nil
}

// newRecord starts an in-progress record. The server version is best
// effort; a backup without it is still a backup.
func (e *Engine) newRecord(ctx context.Context, kind models.BackupKind) *models.BackupRecord {
	version, err := e.ctrl.Version(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("could not determine server version")
	}
	return &models.BackupRecord{
		ID:              newRecordID(kind),
		Kind:            kind,
		Container:       e.target.Container,
		Database:        e.target.Database,
		PostgresVersion: version,
		Status:          models.BackupStatusInProgress,
		CreatedAt:       time.Now(),
	}
}

// finalize settles the record into its terminal status and rewrites the
// sidecar. Completed demands an artifact on disk with size > 0; anything
// else is failed.
func (e *Engine) finalize(rec *models.BackupRecord, dir, diag string) {
	info, err := os.Stat(rec.StoragePath)
	switch {
	case diag != "":
		rec.Status = models.BackupStatusFailed
		rec.Error = diag
	case err != nil:
		rec.Status = models.BackupStatusFailed
		rec.Error = fmt.Sprintf("artifact missing: %v", err)
	case info.Size() == 0:
		rec.Status = models.BackupStatusFailed
		rec.Error = "artifact is empty"
	default:
		rec.Status = models.BackupStatusCompleted
		rec.SizeBytes = info.Size()
		now := time.Now()
		rec.CompletedAt = &now
	}
	if rec.Status == models.BackupStatusFailed {
		// a failed record must not claim a valid artifact
		rec.SizeBytes = 0
	}
	if err := writeRecord(dir, rec); err != nil {
		e.log.Error().Err(err).Str("id", rec.ID).Msg("failed to persist backup record")
	}
}

func (e *Engine) prune(outputDir string, retentionDays int) {
	removed, err := Prune(outputDir, retentionDays, time.Now())
	if err != nil {
		e.log.Warn().Err(err).Msg("retention sweep failed")
		return
	}
	for _, rec := range removed {
		e.log.Info().Str("id", rec.ID).Time("created_at", rec.CreatedAt).Msg("expired backup removed")
	}
}
