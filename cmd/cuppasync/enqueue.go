package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cuppasync/internal/cli"
	"cuppasync/internal/queue"
	"cuppasync/internal/sync"
	"cuppasync/internal/utils"
)

func newEnqueueCmd() *cobra.Command {
	var payloadFlag string
	var userID string
	var background bool

	cmd := &cobra.Command{
		Use:   "enqueue <operation>",
		Short: "Queue a mutation for the next sync",
		Long: `Append a mutation to the offline queue. The payload is any JSON value.
The user id defaults to the payload's userId, user_id or user.id field,
then to 'user_id' from the config.

Examples:
  cuppasync enqueue rate_coffee --payload '{"coffeeId":"c1","rating":5}' --user u1
  cuppasync enqueue quest:complete --payload '{"questId":7,"user":{"id":42}}'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: cli.OperationCompletion(queuedOperations),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation := args[0]
			if err := utils.ValidateOperation(operation); err != nil {
				return err
			}
			payload, err := utils.ParsePayloadFlag(payloadFlag)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if userID == "" && queue.ResolveUserID("", payload) == "" {
				userID = a.Config().UserID
			}

			item, pending, err := enqueue(cmd.Context(), a.Store(), operation, payload, userID)
			if err != nil {
				return err
			}
			printQueued(cmd.OutOrStdout(), item, pending)

			if background || a.Config().Sync.BackgroundAfterEnqueue {
				if err := sync.SpawnBackgroundSync(configArgs()...); err != nil {
					utils.Warnf("background sync not started: %v", err)
				} else {
					utils.Infof("background sync started")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payloadFlag, "payload", "p", "", "mutation payload as JSON")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id owning the mutation")
	cmd.Flags().BoolVar(&background, "sync", false, "start a background sync after queueing")

	return cmd
}

func enqueue(ctx context.Context, store *queue.Store, operation string, payload any, userID string) (queue.Item, int, error) {
	item, err := store.Enqueue(ctx, operation, payload, userID)
	if err != nil {
		return queue.Item{}, 0, err
	}
	pending, err := store.Len(ctx)
	if err != nil {
		return item, 0, err
	}
	return item, pending, nil
}

func printQueued(out io.Writer, item queue.Item, pending int) {
	fmt.Fprintf(out, "✓ Queued %s (%s)\n", item.Operation, item.ID)
	if item.UserID == "" {
		fmt.Fprintln(out, "⚠ No user id: this change will be discarded at sync time")
	}
	fmt.Fprintf(out, "Pending changes: %d\n", pending)
}
