package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home directory: %v", err)
	}
	t.Setenv("CUPPASYNC_TEST_DIR", "/srv/cuppa")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "tilde only", input: "~", expected: homeDir},
		{
			name:     "tilde with path",
			input:    "~/.local/share/cuppasync/queue.db",
			expected: filepath.Join(homeDir, ".local/share/cuppasync/queue.db"),
		},
		{name: "absolute path unchanged", input: "/var/lib/queue.db", expected: "/var/lib/queue.db"},
		{name: "relative path unchanged", input: "data/queue.db", expected: "data/queue.db"},
		{name: "empty string", input: "", expected: ""},
		{name: "env var expansion", input: "$CUPPASYNC_TEST_DIR/queue.db", expected: "/srv/cuppa/queue.db"},
		{name: "file scheme", input: "file:///tmp/queue.db", expected: "/tmp/queue.db"},
		{name: "file scheme with tilde", input: "file://~/queue.db", expected: filepath.Join(homeDir, "queue.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error = %v", err)
	}
	if dir != "/xdg/data/cuppasync" {
		t.Errorf("DataDir() = %q, want %q", dir, "/xdg/data/cuppasync")
	}
}
