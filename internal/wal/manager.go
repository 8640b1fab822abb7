package wal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/postgres"
	"github.com/zafrullakhan001/drydock/internal/utils"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// CaptureManifest is the sidecar filename written into every capture
// directory.
const CaptureManifest = "capture.json"

var errArchiverLagging = errors.New("archiver has not confirmed the switched segment")

type Manager struct {
	rt           docker.Runtime
	ctrl         *postgres.Controller
	target       models.Target
	containerDir string
	log          zerolog.Logger

	clock         clock.Clock
	drainAttempts int
	drainDelay    time.Duration
}

// NewManager builds the archive manager. containerDir is the path inside
// the container the server's archive_command writes to.
func NewManager(rt docker.Runtime, ctrl *postgres.Controller, target models.Target, containerDir string, log zerolog.Logger) *Manager {
	return &Manager{
		rt:            rt,
		ctrl:          ctrl,
		target:        target,
		containerDir:  containerDir,
		log:           log,
		clock:         clock.WallClock,
		drainAttempts: 5,
		drainDelay:    2 * time.Second,
	}
}

// RequiredSettings is the server configuration continuous archiving needs,
// pointed at containerDir.
func RequiredSettings(containerDir string) *models.WALSettings {
	return &models.WALSettings{
		WALLevel:       "replica",
		ArchiveMode:    "on",
		ArchiveCommand: fmt.Sprintf("test ! -f %s/%%f && cp %%p %s/%%f", containerDir, containerDir),
		MaxWALSenders:  3,
		WALKeepSize:    "512MB",
	}
}

// Setup ensures both archive directories exist and reports the settings the
// server needs. It never applies them: changing archive_mode requires a
// restart, and restarting the database is the operator's decision, not
// drydock's. Calling Setup again is a no-op beyond the existence checks.
func (m *Manager) Setup(ctx context.Context, archiveDir string) (*models.WALSettings, string, error) {
	hostDir, err := utils.EnsureWritableDir(archiveDir)
	if err != nil {
		return nil, "", err
	}
	if err := m.ctrl.EnsureDir(ctx, m.containerDir); err != nil {
		return nil, "", err
	}
	m.log.Info().Str("host_dir", hostDir).Str("container_dir", m.containerDir).Msg("wal archive directories ready")
	return RequiredSettings(m.containerDir), hostDir, nil
}

// Status reports the server's archiving state. Read-only.
func (m *Manager) Status(ctx context.Context) (*models.WALStatus, error) {
	return m.ctrl.ArchiverStatus(ctx)
}

// Capture forces a segment switch so the in-flight segment becomes
// archivable, waits briefly for the archiver to drain, and copies the
// container's archive directory into a timestamped subdirectory of
// archiveDir. Source segments are never deleted; clearing the container
// archive is a separate operator decision. The returned segments are in
// replay order, and a sequence gap in the copied set reports ErrIntegrity
// alongside the result.
func (m *Manager) Capture(ctx context.Context, archiveDir string, compress bool) (*models.CaptureResult, error) {
	if err := m.ctrl.Ping(ctx); err != nil {
		return nil, err
	}
	before, err := m.ctrl.ArchiverStatus(ctx)
	if err != nil {
		return nil, err
	}

	switchLSN, err := m.ctrl.SwitchWAL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to switch wal segment: %w", err)
	}
	m.log.Info().Str("switch_lsn", switchLSN.String()).Msg("wal segment switched")

	if before.ArchiveMode == "on" {
		m.waitForArchiver(ctx, before.LastArchived)
	} else {
		m.log.Warn().Str("archive_mode", before.ArchiveMode).Msg("archive_mode is not on, capturing previously archived segments only")
	}

	destDir := filepath.Join(archiveDir, "wal-"+m.clock.Now().Format("20060102-150405"))
	if err := m.rt.CopyFrom(ctx, m.target.Container, m.containerDir, destDir); err != nil {
		return nil, fmt.Errorf("failed to copy archive from container (run 'drydock wal setup' first?): %w", err)
	}

	segments, totalSize, err := m.collectSegments(destDir, compress)
	if err != nil {
		return nil, err
	}

	result := &models.CaptureResult{
		Dir:        destDir,
		SwitchLSN:  switchLSN.String(),
		Segments:   segments,
		SizeBytes:  totalSize,
		CapturedAt: m.clock.Now(),
	}
	if err := utils.WriteJSON(filepath.Join(destDir, CaptureManifest), result); err != nil {
		return nil, err
	}
	m.log.Info().Int("segments", len(segments)).Int64("size_bytes", totalSize).Str("dir", destDir).Msg("wal capture written")

	if len(segments) > 0 {
		if _, err := VerifyContiguous(segments, segments[0].Timeline, segments[0].Seq); err != nil {
			m.log.Warn().Err(err).Msg("captured set is not contiguous")
			return result, err
		}
	}
	return result, nil
}

// waitForArchiver polls pg_stat_archiver until last_archived_wal moves past
// its pre-switch value. Bounded and advisory: an archiver that stays quiet
// (nothing new to archive, or a broken archive_command the status output
// will show) must not wedge the capture.
func (m *Manager) waitForArchiver(ctx context.Context, lastBefore string) {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			status, err := m.ctrl.ArchiverStatus(ctx)
			if err != nil {
				return err
			}
			if status.LastArchived != "" && status.LastArchived != lastBefore {
				return nil
			}
			return errArchiverLagging
		},
		IsFatalError: func(err error) bool { return !errors.Is(err, errArchiverLagging) },
		NotifyFunc: func(err error, attempt int) {
			m.log.Debug().Int("attempt", attempt).Msg("waiting for archiver to drain")
		},
		Attempts: m.drainAttempts,
		Delay:    m.drainDelay,
		Clock:    m.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("archiver did not confirm the switched segment, capturing what is present")
	}
}

// collectSegments inventories the copied files, compressing them first when
// asked. Non-segment files (.history, .backup) stay on disk for the server
// but are not part of the manifest.
func (m *Manager) collectSegments(dir string, compress bool) ([]models.WALSegment, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read capture directory: %w", err)
	}

	var segments []models.WALSegment
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		seg, perr := ParseSegmentName(entry.Name())
		if perr != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if compress && !seg.Compressed {
			if _, size, err := CompressSegment(path); err == nil {
				seg.Compressed = true
				seg.SizeBytes = size
			} else {
				m.log.Warn().Err(err).Str("segment", seg.Filename).Msg("compression failed, keeping segment uncompressed")
			}
		}
		if seg.SizeBytes == 0 {
			info, err := entry.Info()
			if err != nil {
				return nil, 0, err
			}
			seg.SizeBytes = info.Size()
		}
		seg.ArchivedAt = m.clock.Now()
		total += seg.SizeBytes
		segments = append(segments, seg)
	}
	Sort(segments)
	return segments, total, nil
}
