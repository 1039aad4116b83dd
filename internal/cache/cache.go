package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"cuppasync/internal/sync"
)

// CachedReport is the last sync run summary as stored on disk.
type CachedReport struct {
	Report    sync.Report `json:"report"`
	Timestamp int64       `json:"timestamp"`
}

// Age returns how long ago the report was saved.
func (c CachedReport) Age() time.Duration {
	return time.Since(time.Unix(c.Timestamp, 0))
}

// GetCacheDir returns the XDG-compliant cache directory path
func GetCacheDir() (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	cacheDir = filepath.Join(cacheDir, "cuppasync")
	return cacheDir, os.MkdirAll(cacheDir, 0755)
}

// GetCacheFile returns the full path to the last run report file
func GetCacheFile() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "last_run.json"), nil
}

// LoadLastReport loads the last run report from the cache file
func LoadLastReport() (*CachedReport, error) {
	cacheFile, err := GetCacheFile()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return nil, err
	}

	var cached CachedReport
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// SaveLastReport saves report to the cache file with a timestamp
func SaveLastReport(report sync.Report) error {
	cacheFile, err := GetCacheFile()
	if err != nil {
		return err
	}

	cached := CachedReport{
		Report:    report,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}

	tmp := cacheFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, cacheFile)
}

// ClearLastReport removes the cached report. A missing file is not an error.
func ClearLastReport() error {
	cacheFile, err := GetCacheFile()
	if err != nil {
		return err
	}
	if err := os.Remove(cacheFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
