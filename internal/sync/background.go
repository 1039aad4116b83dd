package sync

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// BackgroundCommand is the hidden CLI command a detached sync process runs.
const BackgroundCommand = "_internal_background_sync"

// SpawnBackgroundSync starts a detached copy of the running executable that
// performs one sync pass, so the caller can exit immediately. extraArgs are
// appended after the hidden command (e.g. --config).
func SpawnBackgroundSync(extraArgs ...string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}

	args := append([]string{BackgroundCommand}, extraArgs...)
	cmd := exec.Command(executable, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start background sync: %w", err)
	}

	// Not waited on; the child outlives this process.
	return cmd.Process.Release()
}
