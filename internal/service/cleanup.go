package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CleanupOldExports deletes archives in the export directory whose
// modification time is strictly older than now minus olderThanHours, and
// returns the number removed. The sweep is best-effort: per-file failures are
// logged and skipped, and a missing directory is not an error. It knows
// nothing about job records, so a completed job's archive can be reclaimed
// underneath it; downloads for such jobs fail late.
func (s *ExportService) CleanupOldExports(ctx context.Context, olderThanHours int) (int, error) {
	if olderThanHours <= 0 {
		olderThanHours = 24
	}
	cutoff := time.Now().Add(-time.Duration(olderThanHours) * time.Hour)

	entries, err := os.ReadDir(s.exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("sweep: failed to stat entry",
				zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.exportDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("sweep: failed to delete file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		deleted++
	}

	s.logger.Info("retention sweep finished",
		zap.Int("deleted", deleted),
		zap.Int("older_than_hours", olderThanHours))
	return deleted, nil
}
