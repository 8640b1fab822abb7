package restore

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
	"github.com/zafrullakhan001/drydock/internal/wal"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// BackupLabel anchors WAL replay: the position the base backup started at
// and the segment file holding it.
type BackupLabel struct {
	StartLSN     models.LSN
	StartSegment models.WALSegment
}

// ReadBackupLabel digs backup_label out of a pg_basebackup tar.gz archive.
// Its START WAL LOCATION line is the one fact recovery planning cannot
// proceed without, and its presence is what makes the archive a physical
// base backup at all.
func ReadBackupLabel(archivePath string) (*BackupLabel, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: base backup %s: %v", errdefs.ErrValidation, archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a gzipped archive: %v", errdefs.ErrValidation, archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read base backup archive: %v", errdefs.ErrValidation, err)
		}
		if hdr.Typeflag == tar.TypeDir || filepath.Base(hdr.Name) != "backup_label" {
			continue
		}
		return parseBackupLabel(tr)
	}
	return nil, fmt.Errorf("%w: no backup_label in %s; not a physical base backup", errdefs.ErrValidation, archivePath)
}

func parseBackupLabel(r io.Reader) (*BackupLabel, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "START WAL LOCATION:") {
			continue
		}
		// START WAL LOCATION: 0/2000028 (file 000000010000000000000002)
		fields := strings.Fields(strings.TrimPrefix(line, "START WAL LOCATION:"))
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: malformed backup_label line %q", errdefs.ErrValidation, line)
		}
		lsn, err := models.ParseLSN(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: backup_label start position: %v", errdefs.ErrValidation, err)
		}
		seg, err := wal.ParseSegmentName(strings.Trim(fields[2], "()"))
		if err != nil {
			return nil, fmt.Errorf("%w: backup_label start segment: %v", errdefs.ErrValidation, err)
		}
		return &BackupLabel{StartLSN: lsn, StartSegment: seg}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backup_label: %w", err)
	}
	return nil, fmt.Errorf("%w: backup_label has no START WAL LOCATION line", errdefs.ErrValidation)
}
