package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zafrullakhan001/drydock/internal/utils"
	"github.com/zafrullakhan001/drydock/pkg/models"
)

// RecordFile is the sidecar written next to every backup artifact.
const RecordFile = "record.json"

func writeRecord(dir string, rec *models.BackupRecord) error {
	if err := utils.WriteJSON(filepath.Join(dir, RecordFile), rec); err != nil {
		return fmt.Errorf("failed to write backup record: %w", err)
	}
	return nil
}

// ReadRecord loads the sidecar from a backup directory.
func ReadRecord(dir string) (*models.BackupRecord, error) {
	var rec models.BackupRecord
	if err := utils.ReadJSON(filepath.Join(dir, RecordFile), &rec); err != nil {
		return nil, fmt.Errorf("failed to read backup record in %s: %w", dir, err)
	}
	return &rec, nil
}

// List scans outputDir for backup records, newest first. Directories
// without a sidecar are ignored; they are not drydock's.
func List(outputDir string) ([]models.BackupRecord, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var records []models.BackupRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := ReadRecord(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Prune removes backups created strictly before now minus retentionDays and
// returns what was removed. A retention of zero or less keeps everything.
func Prune(outputDir string, retentionDays int, now time.Time) ([]models.BackupRecord, error) {
	if retentionDays <= 0 {
		return nil, nil
	}
	records, err := List(outputDir)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	var removed []models.BackupRecord
	for _, rec := range records {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(outputDir, rec.ID)); err != nil {
			return removed, fmt.Errorf("failed to remove expired backup %s: %w", rec.ID, err)
		}
		removed = append(removed, rec)
	}
	return removed, nil
}
