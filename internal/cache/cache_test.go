package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuppasync/internal/sync"
)

// setupTestCache points XDG_CACHE_HOME at a temporary directory
func setupTestCache(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", tmpDir)
	return tmpDir
}

func TestGetCacheDir(t *testing.T) {
	tmpDir := setupTestCache(t)

	dir, err := GetCacheDir()
	if err != nil {
		t.Fatalf("GetCacheDir() failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "cuppasync")
	if dir != expected {
		t.Errorf("GetCacheDir() = %q, want %q", dir, expected)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Cache directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Cache path is not a directory")
	}
}

func TestGetCacheFile(t *testing.T) {
	tmpDir := setupTestCache(t)

	file, err := GetCacheFile()
	if err != nil {
		t.Fatalf("GetCacheFile() failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "cuppasync", "last_run.json")
	if file != expected {
		t.Errorf("GetCacheFile() = %q, want %q", file, expected)
	}
}

func TestSaveAndLoadLastReport(t *testing.T) {
	setupTestCache(t)

	report := sync.Report{
		Total:     3,
		Processed: 3,
		Completed: 2,
		Retried:   1,
		Remaining: 1,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}

	if err := SaveLastReport(report); err != nil {
		t.Fatalf("SaveLastReport() failed: %v", err)
	}

	loaded, err := LoadLastReport()
	if err != nil {
		t.Fatalf("LoadLastReport() failed: %v", err)
	}

	if loaded.Report.Total != 3 || loaded.Report.Completed != 2 || loaded.Report.Retried != 1 {
		t.Errorf("loaded report = %+v", loaded.Report)
	}
	if !loaded.Report.StartedAt.Equal(report.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", loaded.Report.StartedAt, report.StartedAt)
	}
	if loaded.Report.Duration != report.Duration {
		t.Errorf("Duration = %v, want %v", loaded.Report.Duration, report.Duration)
	}
	if loaded.Age() > time.Minute {
		t.Errorf("Age() = %v, want recent", loaded.Age())
	}
}

func TestLoadLastReport_Missing(t *testing.T) {
	setupTestCache(t)

	_, err := LoadLastReport()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadLastReport() error = %v, want not exist", err)
	}
}

func TestLoadLastReport_Corrupt(t *testing.T) {
	setupTestCache(t)

	file, err := GetCacheFile()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadLastReport(); err == nil {
		t.Error("LoadLastReport() should fail on corrupt data")
	}
}

func TestClearLastReport(t *testing.T) {
	setupTestCache(t)

	if err := ClearLastReport(); err != nil {
		t.Fatalf("ClearLastReport() on missing file error = %v", err)
	}
	if err := SaveLastReport(sync.Report{Total: 1}); err != nil {
		t.Fatal(err)
	}
	if err := ClearLastReport(); err != nil {
		t.Fatalf("ClearLastReport() error = %v", err)
	}
	if _, err := LoadLastReport(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("report still present after clear: %v", err)
	}
}
