package restore

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

func writeTarFile(t *testing.T, tw *tar.Writer, name, content string) {
	t.Helper()
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0o600,
		Size: int64(len(content)),
	}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
}

// writeBaseBackup builds a pg_basebackup-shaped tar.gz: a backup_label
// pointing at startLSN/startSegment plus a couple of filler entries.
func writeBaseBackup(t *testing.T, dir, startLSN, startSegment string) string {
	t.Helper()
	label := fmt.Sprintf(
		"START WAL LOCATION: %s (file %s)\nCHECKPOINT LOCATION: %s\nBACKUP METHOD: streamed\nBACKUP FROM: primary\n",
		startLSN, startSegment, startLSN,
	)
	return writeBaseBackupArchive(t, dir, map[string]string{
		"PG_VERSION":   "16\n",
		"backup_label": label,
	})
}

func writeBaseBackupArchive(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "base.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, name := range []string{"PG_VERSION", "backup_label", "postgresql.conf"} {
		if content, ok := files[name]; ok {
			writeTarFile(t, tw, name, content)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReadBackupLabel(t *testing.T) {
	path := writeBaseBackup(t, t.TempDir(), "0/2000028", "000000010000000000000002")

	label, err := ReadBackupLabel(path)
	require.NoError(t, err)
	assert.Equal(t, models.LSN(0x2000028), label.StartLSN)
	assert.Equal(t, "000000010000000000000002", label.StartSegment.Filename)
	assert.Equal(t, uint32(1), label.StartSegment.Timeline)
	assert.Equal(t, uint64(2), label.StartSegment.Seq)
}

func TestReadBackupLabelMissingLabel(t *testing.T) {
	path := writeBaseBackupArchive(t, t.TempDir(), map[string]string{
		"PG_VERSION":      "16\n",
		"postgresql.conf": "# empty\n",
	})

	_, err := ReadBackupLabel(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
	assert.Contains(t, err.Error(), "not a physical base backup")
}

func TestReadBackupLabelNotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not an archive"), 0o644))

	_, err := ReadBackupLabel(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
}

func TestReadBackupLabelMissingFile(t *testing.T) {
	_, err := ReadBackupLabel(filepath.Join(t.TempDir(), "absent.tar.gz"))
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
}

func TestReadBackupLabelMalformedStartLine(t *testing.T) {
	path := writeBaseBackupArchive(t, t.TempDir(), map[string]string{
		"backup_label": "START WAL LOCATION: garbage\n",
	})

	_, err := ReadBackupLabel(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
}

func TestReadBackupLabelNoStartLine(t *testing.T) {
	path := writeBaseBackupArchive(t, t.TempDir(), map[string]string{
		"backup_label": "CHECKPOINT LOCATION: 0/2000060\nBACKUP METHOD: streamed\n",
	})

	_, err := ReadBackupLabel(path)
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
	assert.Contains(t, err.Error(), "START WAL LOCATION")
}
