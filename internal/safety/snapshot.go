// Package safety takes full volume snapshots before destructive restore
// steps. Snapshot is fail-closed: when it returns an error the caller must
// not proceed to destroy anything. Snapshots are never removed
// automatically; reclaiming their space is an operator decision.
package safety

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lucsky/cuid"
	"github.com/rs/zerolog"

	"github.com/zafrullakhan001/drydock/internal/docker"
	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/utils"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

type Manager struct {
	rt          docker.Runtime
	volume      string
	helperImage string
	log         zerolog.Logger
}

func NewManager(rt docker.Runtime, volume, helperImage string, log zerolog.Logger) *Manager {
	return &Manager{rt: rt, volume: volume, helperImage: helperImage, log: log}
}

// Snapshot archives the whole data volume to <destDir>/<id>.tar.gz through
// a disposable helper container with the volume mounted read-only, then
// writes a <id>.json sidecar. The archive is read back from disk before the
// snapshot is reported good.
func (m *Manager) Snapshot(ctx context.Context, destDir, reason string) (*models.SafetySnapshot, error) {
	exists, err := m.rt.VolumeExists(ctx, m.volume)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect volume %s: %w", m.volume, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: volume %s not found", errdefs.ErrValidation, m.volume)
	}

	destDir, err = utils.EnsureWritableDir(destDir)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("snapshot-%s-%s", time.Now().Format("20060102-150405"), cuid.Slug())
	archive := id + ".tar.gz"

	m.log.Info().Str("id", id).Str("volume", m.volume).Str("reason", reason).Msg("taking safety snapshot")

	spec := docker.HelperSpec{
		Image: m.helperImage,
		Cmd:   []string{"sh", "-c", fmt.Sprintf("tar czf /backup/%s -C /volume-data .", archive)},
		Mounts: []docker.HelperMount{
			{Volume: m.volume, Target: "/volume-data", ReadOnly: true},
			{HostPath: destDir, Target: "/backup"},
		},
	}
	if err := m.rt.RunHelper(ctx, spec); err != nil {
		return nil, fmt.Errorf("failed to snapshot volume %s: %w", m.volume, err)
	}

	archivePath := filepath.Join(destDir, archive)
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("snapshot archive missing after helper run: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("snapshot archive %s is empty", archivePath)
	}

	snap := &models.SafetySnapshot{
		ID:          id,
		VolumeName:  m.volume,
		ArchivePath: archivePath,
		SizeBytes:   info.Size(),
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if err := utils.WriteJSON(filepath.Join(destDir, id+".json"), snap); err != nil {
		return nil, fmt.Errorf("failed to write snapshot sidecar: %w", err)
	}

	m.log.Info().Str("id", id).Int64("size_bytes", snap.SizeBytes).Msg("safety snapshot written")
	return snap, nil
}

// List returns the snapshots recorded under destDir, newest first. Files
// that are not snapshot sidecars are skipped.
func List(destDir string) ([]models.SafetySnapshot, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snaps []models.SafetySnapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var snap models.SafetySnapshot
		if err := utils.ReadJSON(filepath.Join(destDir, entry.Name()), &snap); err != nil {
			continue
		}
		if snap.ID == "" || snap.ArchivePath == "" {
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}
