// Package wal manages the write-ahead-log archive: capturing segments out
// of the container, naming and ordering them, and validating the archive is
// replayable.
package wal

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// CompressedSuffix marks segments drydock compressed at capture time.
const CompressedSuffix = ".zst"

// segmentsPerLog is how many 16MB segments one 4GB WAL log spans; segment
// names encode log and offset separately.
const segmentsPerLog = 0x100

// ParseSegmentName decodes a 24-hex-digit segment filename, with or without
// the drydock compression suffix. Everything else in an archive directory
// (.history, .backup, .partial files) fails the parse and is ignored by
// callers.
func ParseSegmentName(name string) (models.WALSegment, error) {
	base := name
	compressed := false
	if strings.HasSuffix(base, CompressedSuffix) {
		base = strings.TrimSuffix(base, CompressedSuffix)
		compressed = true
	}
	if len(base) != 24 {
		return models.WALSegment{}, fmt.Errorf("%q is not a wal segment name", name)
	}
	timeline, err := strconv.ParseUint(base[0:8], 16, 32)
	if err != nil {
		return models.WALSegment{}, fmt.Errorf("%q is not a wal segment name", name)
	}
	log, err := strconv.ParseUint(base[8:16], 16, 32)
	if err != nil {
		return models.WALSegment{}, fmt.Errorf("%q is not a wal segment name", name)
	}
	seg, err := strconv.ParseUint(base[16:24], 16, 32)
	if err != nil {
		return models.WALSegment{}, fmt.Errorf("%q is not a wal segment name", name)
	}
	if seg >= segmentsPerLog {
		return models.WALSegment{}, fmt.Errorf("%q has segment offset %X out of range", name, seg)
	}
	return models.WALSegment{
		Filename:   base,
		Timeline:   uint32(timeline),
		Seq:        log*segmentsPerLog + seg,
		Compressed: compressed,
	}, nil
}

// SegmentFileName is the inverse of ParseSegmentName for uncompressed
// segments.
func SegmentFileName(timeline uint32, seq uint64) string {
	return fmt.Sprintf("%08X%08X%08X", timeline, seq/segmentsPerLog, seq%segmentsPerLog)
}

// Sort orders segments by timeline, then sequence.
func Sort(segments []models.WALSegment) {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Timeline != segments[j].Timeline {
			return segments[i].Timeline < segments[j].Timeline
		}
		return segments[i].Seq < segments[j].Seq
	})
}

// VerifyContiguous checks that the archive holds an unbroken run of
// segments on one timeline from fromSeq through the newest segment present.
// A gap makes every recovery point past it unreachable, so it reports
// ErrIntegrity naming the first missing segment.
func VerifyContiguous(segments []models.WALSegment, timeline uint32, fromSeq uint64) (uint64, error) {
	present := make(map[uint64]bool)
	var maxSeq uint64
	var any bool
	for _, s := range segments {
		if s.Timeline != timeline {
			continue
		}
		present[s.Seq] = true
		if !any || s.Seq > maxSeq {
			maxSeq = s.Seq
		}
		any = true
	}
	if !any || !present[fromSeq] {
		return 0, fmt.Errorf("%w: archive has no segment %s", errdefs.ErrIntegrity, SegmentFileName(timeline, fromSeq))
	}
	for seq := fromSeq; seq <= maxSeq; seq++ {
		if !present[seq] {
			return 0, fmt.Errorf("%w: gap in wal archive, segment %s is missing", errdefs.ErrIntegrity, SegmentFileName(timeline, seq))
		}
	}
	return maxSeq, nil
}

// LoadArchive collects every wal segment under dir, including capture
// subdirectories. Segments captured more than once (source segments are
// never deleted) collapse to a single entry.
func LoadArchive(dir string) ([]models.WALSegment, error) {
	seen := make(map[string]models.WALSegment)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		seg, perr := ParseSegmentName(d.Name())
		if perr != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		seg.SizeBytes = info.Size()
		seg.ArchivedAt = info.ModTime()
		if prev, ok := seen[seg.Filename]; !ok || prev.ArchivedAt.Before(seg.ArchivedAt) {
			seen[seg.Filename] = seg
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan wal archive %s: %w", dir, err)
	}
	segments := make([]models.WALSegment, 0, len(seen))
	for _, seg := range seen {
		segments = append(segments, seg)
	}
	Sort(segments)
	return segments, nil
}

// FindSegmentFile locates the stored file for a segment under dir,
// preferring the uncompressed form.
func FindSegmentFile(dir string, seg models.WALSegment) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || found != "" {
			return nil
		}
		if d.Name() == seg.Filename || d.Name() == seg.Filename+CompressedSuffix {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan wal archive %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: segment %s vanished from archive", errdefs.ErrIntegrity, seg.Filename)
	}
	return found, nil
}
