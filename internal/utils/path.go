package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading "file://", "~" and environment variables
// in file paths. Examples:
//   - "~/.local/share/cuppasync/queue.db" -> "/home/user/.local/share/cuppasync/queue.db"
//   - "$XDG_DATA_HOME/cuppasync" -> "/home/user/.local/share/cuppasync"
//   - "file:///var/lib/cuppasync/queue.db" -> "/var/lib/cuppasync/queue.db"
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = strings.TrimPrefix(path, "file://")
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		if path == "~" {
			return homeDir, nil
		}

		path = filepath.Join(homeDir, path[2:])
	}

	return path, nil
}

// DataDir returns $XDG_DATA_HOME/cuppasync, falling back to ~/.local/share/cuppasync.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cuppasync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "cuppasync"), nil
}
