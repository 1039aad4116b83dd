package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cuppasync/internal/app"
	"cuppasync/internal/cli"
	"cuppasync/internal/config"
	"cuppasync/internal/queue"
	"cuppasync/internal/utils"
)

func newQueueCmd() *cobra.Command {
	var output string
	var summary bool

	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Show pending mutations",
		Long: `Display the offline queue in order.

Examples:
  cuppasync queue
  cuppasync queue -o json
  cuppasync queue --summary
  cuppasync queue clear --retried`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Store().GetQueue(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read queue: %w", err)
			}
			if summary {
				cli.ShowOperations(cmd.OutOrStdout(), items, cli.GetTerminalWidth(), isTerminal(cmd.OutOrStdout()))
				return nil
			}
			return printQueue(cmd.OutOrStdout(), items, output)
		},
	}

	queueCmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	queueCmd.Flags().BoolVarP(&summary, "summary", "s", false, "show counts per operation")
	queueCmd.AddCommand(newQueueClearCmd())

	return queueCmd
}

func newQueueClearCmd() *cobra.Command {
	var retried bool
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard queued mutations",
		Long:  `Discard queued mutations. Use --retried to discard only mutations that already failed at least once.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			what := "all queued changes"
			if retried {
				what = "queued changes that failed before"
			}
			if !force && !utils.PromptYesNo("Discard "+what+"?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			cleared, err := clearQueue(cmd.Context(), a.Store(), retried)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d changes\n", cleared)
			return nil
		},
	}

	cmd.Flags().BoolVar(&retried, "retried", false, "clear only changes with at least one retry")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

// clearQueue removes every item, or only retried ones, and returns how
// many were removed.
func clearQueue(ctx context.Context, store *queue.Store, onlyRetried bool) (int, error) {
	cleared := 0
	err := store.Update(ctx, func(items []queue.Item) []queue.Item {
		kept := items[:0:0]
		for _, item := range items {
			if onlyRetried && item.Retries == 0 {
				kept = append(kept, item)
				continue
			}
			cleared++
		}
		return kept
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear queue: %w", err)
	}
	return cleared, nil
}

func printQueue(out io.Writer, items []queue.Item, format string) error {
	switch format {
	case "json":
		if items == nil {
			items = []queue.Item{}
		}
		return utils.WriteJSON(out, items)
	case "yaml":
		return utils.WriteYAML(out, items)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No pending changes")
		return nil
	}

	fmt.Fprintf(out, "Pending changes (%d):\n\n", len(items))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOPERATION\tUSER\tSTATUS\tRETRIES\tCREATED\tLAST ERROR")
	for _, item := range items {
		user := item.UserID
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(item.ID), item.Operation, user, item.Status, item.Retries,
			item.CreatedAt.Local().Format(time.DateTime), item.LastError)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// queuedOperations lists the operations currently queued, for shell
// completion. Errors yield no suggestions.
func queuedOperations() []string {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil
	}
	storage, err := app.OpenStorage(cfg.Storage)
	if err != nil {
		return nil
	}
	defer storage.Close()

	items, err := queue.NewStore(storage, nil).GetQueue(context.Background())
	if err != nil {
		return nil
	}
	ops := make([]string, 0, len(items))
	for _, item := range items {
		ops = append(ops, item.Operation)
	}
	return ops
}
