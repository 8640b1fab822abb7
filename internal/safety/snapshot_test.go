package safety

import (
	"context"
	"errors"
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
	"github.com/zafrullakhan001/drydock/internal/testutil"
	"github.com/zafrullakhan001/drydock/internal/utils"
)

func TestSnapshot(t *testing.T) {
	rt := &testutil.FakeRuntime{
		HelperFn: func(spec docker.HelperSpec) error {
			return testutil.WriteHelperArchive(spec, 4096)
		},
	}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())
	destDir := t.TempDir()

	snap, err := mgr.Snapshot(context.Background(), destDir, "pre-restore")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(snap.ID, "snapshot-"))
	assert.Equal(t, "pg-data", snap.VolumeName)
	assert.Equal(t, "pre-restore", snap.Reason)
	assert.Equal(t, int64(4096), snap.SizeBytes)
	assert.FileExists(t, snap.ArchivePath)
	assert.FileExists(t, filepath.Join(destDir, snap.ID+".json"))

	// the volume is only ever mounted read-only
	require.Len(t, rt.Helpers, 1)
	spec := rt.Helpers[0]
	assert.Equal(t, "alpine:latest", spec.Image)
	var volumeMount *docker.HelperMount
	for i, m := range spec.Mounts {
		if m.Volume == "pg-data" {
			volumeMount = &spec.Mounts[i]
		}
	}
	require.NotNil(t, volumeMount)
	assert.True(t, volumeMount.ReadOnly)
}

func TestSnapshotMissingVolume(t *testing.T) {
	rt := &testutil.FakeRuntime{
		MissingVolumes: map[string]bool{"pg-data": true},
	}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())

	snap, err := mgr.Snapshot(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
	assert.Nil(t, snap)
	assert.Empty(t, rt.Helpers, "no helper may run against a missing volume")
}

func TestSnapshotHelperFailureIsFatal(t *testing.T) {
	rt := &testutil.FakeRuntime{
		HelperFn: func(spec docker.HelperSpec) error {
			return errors.New("tar: /volume-data: No space left on device")
		},
	}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())

	snap, err := mgr.Snapshot(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "No space left")
}

func TestSnapshotEmptyArchiveIsFatal(t *testing.T) {
	rt := &testutil.FakeRuntime{
		HelperFn: func(spec docker.HelperSpec) error {
			return testutil.WriteHelperArchive(spec, 0)
		},
	}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())

	snap, err := mgr.Snapshot(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "empty")
}

func TestSnapshotSilentHelperIsFatal(t *testing.T) {
	// helper exits 0 without producing the archive
	rt := &testutil.FakeRuntime{}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())

	snap, err := mgr.Snapshot(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "missing")
}

func TestListNewestFirst(t *testing.T) {
	destDir := t.TempDir()
	rt := &testutil.FakeRuntime{
		HelperFn: func(spec docker.HelperSpec) error {
			return testutil.WriteHelperArchive(spec, 10)
		},
	}
	mgr := NewManager(rt, "pg-data", "alpine:latest", zerolog.Nop())

	first, err := mgr.Snapshot(context.Background(), destDir, "one")
	require.NoError(t, err)
	second, err := mgr.Snapshot(context.Background(), destDir, "two")
	require.NoError(t, err)

	// creation timestamps carry the ordering even within one second
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, utils.WriteJSON(filepath.Join(destDir, second.ID+".json"), second))

	snaps, err := List(destDir)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, second.ID, snaps[0].ID)
	assert.Equal(t, first.ID, snaps[1].ID)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "notes.txt"), []byte("keep out"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "broken.json"), []byte("{"), 0o644))

	snaps, err := List(destDir)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	snaps, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
