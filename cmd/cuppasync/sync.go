package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"cuppasync/internal/cache"
	"cuppasync/internal/notify"
	"cuppasync/internal/sync"
	"cuppasync/internal/utils"
)

func newSyncCmd() *cobra.Command {
	var useTUI bool
	var output string

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay queued mutations against the remote log",
		Long: `Run one sync pass over the offline queue.

Each change is submitted to the remote mutation log. Conflicts are merged
and resolved remotely, network failures are retried on the next pass, and
changes that keep failing are discarded with a notification.

Examples:
  cuppasync sync
  cuppasync sync --tui
  cuppasync sync -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := loadApp(out)
			if err != nil {
				return err
			}
			defer a.Close()

			var report sync.Report
			if useTUI {
				// Toasts are held back until the view is gone.
				held := &notify.Recorder{}
				coord, err := a.Coordinator(sync.WithSink(held))
				if err != nil {
					return err
				}
				report, err = runSyncTUI(cmd.Context(), coord, a.Store().Hub())
				for _, t := range held.Toasts() {
					a.Sink().Notify(t)
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					return syncError(err)
				}
			} else {
				coord, err := a.Coordinator()
				if err != nil {
					return err
				}
				report, err = coord.ProcessQueue(cmd.Context())
				if err != nil {
					return syncError(err)
				}
			}

			if err := cache.SaveLastReport(report); err != nil {
				utils.Debugf("failed to cache run report: %v", err)
			}
			return printReport(out, report, output)
		},
	}

	syncCmd.Flags().BoolVar(&useTUI, "tui", false, "show a progress bar while syncing")
	syncCmd.Flags().StringVarP(&output, "output", "o", "text", "report format: text, json or yaml")

	return syncCmd
}

func syncError(err error) error {
	if errors.Is(err, sync.ErrAlreadyRunning) {
		return utils.ErrSyncInProgress()
	}
	return fmt.Errorf("sync failed: %w", err)
}

// printReport displays a run report in a user-friendly format
func printReport(out io.Writer, report sync.Report, format string) error {
	switch format {
	case "json":
		return utils.WriteJSON(out, report)
	case "yaml":
		return utils.WriteYAML(out, report)
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}

	if report.Total == 0 {
		fmt.Fprintln(out, "Nothing to sync")
		return nil
	}

	fmt.Fprintln(out, "\n=== Sync Report ===")
	fmt.Fprintf(out, "Synced: %d/%d\n", report.Completed, report.Total)
	if report.Retried > 0 {
		fmt.Fprintf(out, "Will retry: %d\n", report.Retried)
	}
	if report.Failed > 0 {
		fmt.Fprintf(out, "Discarded: %d\n", report.Failed)
	}
	if report.Skipped > 0 {
		fmt.Fprintf(out, "Skipped: %d\n", report.Skipped)
	}
	if report.Error != "" {
		fmt.Fprintf(out, "\n⚠ Run aborted: %s\n", report.Error)
	}
	fmt.Fprintf(out, "Still queued: %d\n", report.Remaining)
	fmt.Fprintf(out, "Duration: %s\n", report.Duration.Round(time.Millisecond))
	return nil
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
