package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cuppasync/internal/cache"
	"cuppasync/internal/config"
	"cuppasync/internal/connectivity"
	"cuppasync/internal/notify"
	"cuppasync/internal/queue"
	"cuppasync/internal/sync"
	"cuppasync/internal/utils"
)

// shutdownTimeout bounds how long watch waits for an in-flight pass.
const shutdownTimeout = 10 * time.Second

func newWatchCmd() *cobra.Command {
	var drainOnStart bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync automatically whenever connectivity returns",
		Long: `Watch connectivity and run a sync pass on every offline to online
transition. The source is chosen by 'connectivity.source':

  probe   poll connectivity.probe_url (or remote.base_url)
  file    watch connectivity.status_file for "online"/"offline"
  manual  read "online"/"offline" lines from stdin

Output is also written to a rotating log under $XDG_STATE_HOME/cuppasync.

Examples:
  cuppasync watch
  cuppasync watch --drain-on-start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			bl, err := utils.NewBackgroundLogger()
			if err != nil {
				utils.Warnf("background log disabled: %v", err)
			}
			defer bl.Close()
			logger := log.New(io.MultiWriter(os.Stderr, bl.Logger().Writer()), "[Watch] ", log.LstdFlags)

			source, err := newSource(a.Config().Connectivity, a.Config().ProbeTarget(), cmd.InOrStdin(), logger)
			if err != nil {
				return err
			}

			coord, err := a.Coordinator(
				sync.WithLogger(logger),
				sync.WithSink(notify.Multi(a.Sink(), notify.LogSink{Logger: bl.Logger()})),
				sync.WithReportHandler(func(r sync.Report) {
					if err := cache.SaveLastReport(r); err != nil {
						logger.Printf("Failed to cache run report: %v", err)
					}
				}),
			)
			if err != nil {
				return err
			}

			drain := drainOnStart || a.Config().Sync.DrainOnStart
			monitor := connectivity.NewMonitor(source, coord.Trigger,
				connectivity.WithDrainOnStart(drain),
				connectivity.WithLogger(logger),
				connectivity.WithChangeHandler(func(st connectivity.Status) {
					fmt.Fprintf(cmd.OutOrStdout(), "Connectivity: %s\n", st)
				}),
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if bl.IsEnabled() {
				fmt.Fprintf(cmd.OutOrStdout(), "Logging to %s\n", bl.GetLogPath())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching connectivity (%s). Press Ctrl+C to stop...\n", a.Config().Connectivity.Source)

			bl.Printf("Watch started: source %s, drain on start %v", a.Config().Connectivity.Source, drain)
			err = monitor.Run(ctx)
			coord.Shutdown(shutdownTimeout)
			logWatchSummary(context.WithoutCancel(ctx), logger, monitor, a.Store())
			bl.Printf("Watch stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&drainOnStart, "drain-on-start", false, "sync immediately when already online at start")
	return cmd
}

// logWatchSummary logs the last reading, the number of transitions seen
// and any changes left queued while offline.
func logWatchSummary(ctx context.Context, logger *log.Logger, monitor *connectivity.Monitor, store *queue.Store) {
	st, ok := monitor.Status()
	if !ok {
		logger.Printf("Stopped before any connectivity reading")
		return
	}
	logger.Printf("Stopped after %d connectivity changes; last reading: %s", monitor.Transitions(), st)

	if monitor.Connected() {
		return
	}
	if n, err := store.Len(ctx); err == nil && n > 0 {
		logger.Printf("%d changes still queued while offline", n)
	}
}

// newSource builds the connectivity source selected by cfg.
func newSource(cfg config.ConnectivityConfig, probeTarget string, stdin io.Reader, logger *log.Logger) (connectivity.Source, error) {
	switch cfg.Source {
	case "file":
		if cfg.StatusFile == "" {
			return nil, utils.ErrInvalidConfig("connectivity.status_file", "required for the file source")
		}
		source := connectivity.NewFileSource(cfg.StatusFile)
		source.Logger = logger
		return source, nil
	case "manual":
		source := connectivity.NewManualSource()
		go feedManualSource(source, stdin)
		return source, nil
	case "probe", "":
		if probeTarget == "" {
			return nil, utils.ErrRemoteNotConfigured()
		}
		return connectivity.NewProbeSource(probeTarget, cfg.Interval), nil
	default:
		return nil, fmt.Errorf("unknown connectivity source %q", cfg.Source)
	}
}

// feedManualSource turns stdin lines into readings until EOF.
func feedManualSource(source *connectivity.ManualSource, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		source.Set(connectivity.ParseState(line))
	}
}
