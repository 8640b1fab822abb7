package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

func TestParseSegmentName(t *testing.T) {
	seg, err := ParseSegmentName("000000010000000000000002")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), seg.Timeline)
	assert.Equal(t, uint64(2), seg.Seq)
	assert.False(t, seg.Compressed)

	seg, err = ParseSegmentName("0000000200000001000000FF.zst")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), seg.Timeline)
	assert.Equal(t, uint64(0x1FF), seg.Seq)
	assert.True(t, seg.Compressed)
	assert.Equal(t, "0000000200000001000000FF", seg.Filename)
}

func TestParseSegmentNameRejectsNonSegments(t *testing.T) {
	for _, name := range []string{
		"00000002.history",
		"000000010000000000000002.00000028.backup",
		"000000010000000000000002.partial",
		"capture.json",
		"0000000100000000000001FF", // offset past the per-log range
		"not-a-segment",
		"",
	} {
		_, err := ParseSegmentName(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestSegmentFileNameRoundTrip(t *testing.T) {
	for _, seq := range []uint64{0, 1, 255, 256, 0x1FF, 1 << 20} {
		name := SegmentFileName(1, seq)
		seg, err := ParseSegmentName(name)
		require.NoError(t, err, "seq %d", seq)
		assert.Equal(t, seq, seg.Seq)
	}
	// log boundary: segment 255 rolls over into log 1
	assert.Equal(t, "0000000100000000000000FF", SegmentFileName(1, 255))
	assert.Equal(t, "000000010000000100000000", SegmentFileName(1, 256))
}

func TestSortOrdersByTimelineThenSeq(t *testing.T) {
	segments := []models.WALSegment{
		{Timeline: 2, Seq: 1, Filename: SegmentFileName(2, 1)},
		{Timeline: 1, Seq: 9, Filename: SegmentFileName(1, 9)},
		{Timeline: 1, Seq: 3, Filename: SegmentFileName(1, 3)},
	}
	Sort(segments)
	assert.Equal(t, uint64(3), segments[0].Seq)
	assert.Equal(t, uint64(9), segments[1].Seq)
	assert.Equal(t, uint32(2), segments[2].Timeline)
}

func segs(timeline uint32, seqs ...uint64) []models.WALSegment {
	out := make([]models.WALSegment, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, models.WALSegment{
			Filename: SegmentFileName(timeline, s),
			Timeline: timeline,
			Seq:      s,
		})
	}
	return out
}

func TestVerifyContiguous(t *testing.T) {
	last, err := VerifyContiguous(segs(1, 2, 3, 4, 5), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)

	// starting later in the run is fine
	last, err = VerifyContiguous(segs(1, 2, 3, 4, 5), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)
}

func TestVerifyContiguousReportsGap(t *testing.T) {
	_, err := VerifyContiguous(segs(1, 2, 3, 5, 6), 1, 2)
	require.Error(t, err)
	assert.True(t, errdefs.IsIntegrity(err))
	assert.Contains(t, err.Error(), SegmentFileName(1, 4))
}

func TestVerifyContiguousMissingStart(t *testing.T) {
	_, err := VerifyContiguous(segs(1, 5, 6), 1, 2)
	require.Error(t, err)
	assert.True(t, errdefs.IsIntegrity(err))

	_, err = VerifyContiguous(nil, 1, 2)
	require.Error(t, err)
	assert.True(t, errdefs.IsIntegrity(err))
}

func TestVerifyContiguousIgnoresOtherTimelines(t *testing.T) {
	segments := append(segs(1, 2, 3), segs(2, 9)...)
	last, err := VerifyContiguous(segments, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)
}

func TestLoadArchiveDeduplicatesAcrossCaptures(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "wal-20260820-110000")
	second := filepath.Join(dir, "wal-20260821-110000")
	require.NoError(t, os.MkdirAll(first, 0o755))
	require.NoError(t, os.MkdirAll(second, 0o755))

	write := func(dir, name string, size int) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
	}
	write(first, SegmentFileName(1, 2), 16)
	write(first, SegmentFileName(1, 3), 16)
	write(second, SegmentFileName(1, 3), 16) // re-captured
	write(second, SegmentFileName(1, 4), 16)
	write(second, "capture.json", 4)
	write(second, "00000001.history", 4)

	segments, err := LoadArchive(dir)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, uint64(2), segments[0].Seq)
	assert.Equal(t, uint64(3), segments[1].Seq)
	assert.Equal(t, uint64(4), segments[2].Seq)
}

func TestFindSegmentFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "wal-20260820-110000")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	name := SegmentFileName(1, 2)
	require.NoError(t, os.WriteFile(filepath.Join(sub, name+CompressedSuffix), []byte("x"), 0o644))

	seg := models.WALSegment{Filename: name, Timeline: 1, Seq: 2, Compressed: true}
	path, err := FindSegmentFile(dir, seg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, name+CompressedSuffix), path)

	_, err = FindSegmentFile(dir, models.WALSegment{Filename: SegmentFileName(1, 9)})
	require.Error(t, err)
	assert.True(t, errdefs.IsIntegrity(err))
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	name := SegmentFileName(1, 7)
	path := filepath.Join(dir, name)
	payload := []byte("wal segment payload, repeated enough to compress: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	stored, size, err := CompressSegment(path)
	require.NoError(t, err)
	assert.Equal(t, path+CompressedSuffix, stored)
	assert.Greater(t, size, int64(0))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original should be removed")

	staged := filepath.Join(dir, "staged", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(staged), 0o755))
	require.NoError(t, DecompressSegmentTo(stored, staged))

	got, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
