package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brandloom/api/internal/service"
	"github.com/brandloom/api/internal/store/memstore"
)

func newCleanupService(t *testing.T, exportDir string) *service.ExportService {
	t.Helper()
	mem := memstore.New()
	return service.NewExportService(mem, mem, nil, &fakeEnqueuer{}, nil, exportDir, zap.NewNop())
}

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("archive"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	return path
}

func TestCleanupOldExports_DeletesOnlyAgedFiles(t *testing.T) {
	dir := t.TempDir()
	svc := newCleanupService(t, dir)

	fresh := writeAgedFile(t, dir, "fresh.zip", 10*time.Hour)
	old1 := writeAgedFile(t, dir, "old1.zip", 30*time.Hour)
	old2 := writeAgedFile(t, dir, "old2.zip", 50*time.Hour)

	deleted, err := svc.CleanupOldExports(context.Background(), 24)
	if err != nil {
		t.Fatalf("CleanupOldExports failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if _, err := os.Stat(fresh); err != nil {
		t.Error("file newer than the cutoff must survive the sweep")
	}
	for _, path := range []string{old1, old2} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", path)
		}
	}
}

func TestCleanupOldExports_MissingDirectory(t *testing.T) {
	svc := newCleanupService(t, filepath.Join(t.TempDir(), "does-not-exist"))

	deleted, err := svc.CleanupOldExports(context.Background(), 24)
	if err != nil {
		t.Fatalf("missing directory must not be an error, got %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestCleanupOldExports_IgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	svc := newCleanupService(t, dir)

	sub := filepath.Join(dir, "keep")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	aged := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(sub, aged, aged); err != nil {
		t.Fatalf("failed to age subdir: %v", err)
	}

	deleted, err := svc.CleanupOldExports(context.Background(), 24)
	if err != nil {
		t.Fatalf("CleanupOldExports failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Error("subdirectories must be left alone")
	}
}

func TestCleanupOldExports_DefaultsTo24Hours(t *testing.T) {
	dir := t.TempDir()
	svc := newCleanupService(t, dir)

	writeAgedFile(t, dir, "fresh.zip", time.Hour)
	writeAgedFile(t, dir, "stale.zip", 30*time.Hour)

	deleted, err := svc.CleanupOldExports(context.Background(), 0)
	if err != nil {
		t.Fatalf("CleanupOldExports failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1 (24h default)", deleted)
	}
}
