package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cuppasync/internal/cache"
	"cuppasync/internal/config"
	"cuppasync/internal/connectivity"
)

func newStatusCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue, remote and connectivity status",
		Long: `Display the pending queue length, the remote endpoint and credential
source, the last sync run and the current connectivity.

Use --offline to skip the connectivity probe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			a, err := loadApp(out)
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.Store().Len(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read queue: %w", err)
			}

			fmt.Fprintln(out, "\n=== cuppasync Status ===")
			if path, err := config.GetConfigPath(); err == nil {
				fmt.Fprintf(out, "Config: %s\n", path)
			}
			fmt.Fprintf(out, "Storage: %s %s\n", a.Config().Storage.Backend, a.Config().Storage.Path)
			fmt.Fprintf(out, "Pending changes: %d\n", pending)

			if a.Config().Remote.BaseURL == "" {
				fmt.Fprintln(out, "Remote: not configured")
			} else {
				fmt.Fprintf(out, "Remote: %s\n", a.Client().Endpoint())
			}
			fmt.Fprintf(out, "Credentials (%s): API key from %s, access token from %s\n",
				a.Config().Profile, a.Credentials().Source, a.Credentials().TokenSource)

			if ops := a.Resolver().Operations(); len(ops) > 0 {
				fmt.Fprintf(out, "Conflict strategies: %s\n", strategySummary(ops, a.Config().Conflict.Strategies))
			}

			printLastRun(out)

			if !offline {
				printConnectivity(cmd.Context(), out, a.Config())
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip the connectivity probe")
	return cmd
}

func strategySummary(ops []string, names map[string]string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op + "=" + names[op]
	}
	return strings.Join(parts, ", ")
}

func printLastRun(out io.Writer) {
	cached, err := cache.LoadLastReport()
	if err != nil || cached == nil {
		fmt.Fprintln(out, "Last sync: Never")
		return
	}
	r := cached.Report
	fmt.Fprintf(out, "Last sync: %s ago (%d/%d synced, %d retried, %d discarded)\n",
		formatDuration(cached.Age()), r.Completed, r.Total, r.Retried, r.Failed)
}

func printConnectivity(ctx context.Context, out io.Writer, cfg *config.Config) {
	switch cfg.Connectivity.Source {
	case "file":
		st := connectivity.NewFileSource(cfg.Connectivity.StatusFile).Read()
		fmt.Fprintf(out, "Connection: %s (file %s)\n", st, cfg.Connectivity.StatusFile)
	case "manual":
		fmt.Fprintln(out, "Connection: manual (set by 'watch' input)")
	default:
		target := cfg.ProbeTarget()
		if target == "" {
			fmt.Fprintln(out, "Connection: unknown (no probe target)")
			return
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		st := connectivity.NewProbeSource(target, cfg.Connectivity.Interval).Probe(ctx)
		fmt.Fprintf(out, "Connection: %s\n", st)
	}
}
