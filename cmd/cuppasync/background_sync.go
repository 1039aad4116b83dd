package main

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"cuppasync/internal/app"
	"cuppasync/internal/cache"
	"cuppasync/internal/notify"
	"cuppasync/internal/sync"
	"cuppasync/internal/utils"
)

// backgroundSyncTimeout bounds a detached pass; unfinished items stay queued.
const backgroundSyncTimeout = 30 * time.Second

// newBackgroundSyncCmd creates a hidden command that runs sync in background
// This is spawned as a separate process to allow the main CLI to exit immediately
func newBackgroundSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:    sync.BackgroundCommand,
		Hidden: true, // Don't show in help
		Short:  "Internal command for background sync (do not call directly)",
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bl, _ := utils.NewBackgroundLogger()
			logger := log.New(io.Discard, "", 0)
			if bl.IsEnabled() {
				defer bl.Close()
				logger = log.New(bl.Logger().Writer(), "[BackgroundSync] ", log.LstdFlags)
			}

			a, err := loadApp(io.Discard)
			if err != nil {
				logger.Printf("Failed to load app: %v", err)
				return nil // Silent fail
			}
			defer a.Close()

			report, err := runBackgroundSync(cmd.Context(), a, logger)
			if err != nil {
				logger.Printf("Sync error: %v", err)
				return nil
			}
			if err := cache.SaveLastReport(report); err != nil {
				logger.Printf("Failed to cache run report: %v", err)
			}
			return nil
		},
	}
}

// runBackgroundSync runs one bounded pass with toasts sent to logger.
func runBackgroundSync(ctx context.Context, a *app.App, logger *log.Logger) (sync.Report, error) {
	coord, err := a.Coordinator(
		sync.WithLogger(logger),
		sync.WithSink(notify.LogSink{Logger: logger}),
	)
	if err != nil {
		return sync.Report{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, backgroundSyncTimeout)
	defer cancel()

	report, err := coord.ProcessQueue(ctx)
	if err != nil {
		return report, err
	}
	logger.Printf("Synced %d of %d changes (%d retried, %d discarded)", report.Completed, report.Total, report.Retried, report.Failed)
	return report, nil
}
