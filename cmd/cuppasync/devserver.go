package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cuppasync/internal/remote/remotetest"
)

func newDevServerCmd() *cobra.Command {
	var addr string
	var table string
	var apiKey string
	var conflicts []string

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local in-memory mutation log",
		Long: `Serve an in-memory mutation log speaking the PostgREST subset cuppasync
uses, for trying the CLI without a real backend. Records are lost on exit.

Examples:
  cuppasync dev-server --addr :54321
  cuppasync dev-server --api-key dev --conflict rate_coffee

Then point the config at it:
  remote:
    base_url: http://localhost:54321`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "[dev-server] ", log.LstdFlags)
			srv := remotetest.NewServer(remotetest.Options{
				Table:              table,
				APIKey:             apiKey,
				ConflictOperations: conflicts,
			})

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           logRequests(logger, srv.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Mutation log listening on %s (table %q)\n", addr, table)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop...")

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("dev server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down dev server...")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("error during shutdown: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dev server stopped (%d records)\n", len(srv.Records()))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:54321", "listen address")
	cmd.Flags().StringVar(&table, "table", "offline_mutations", "mutation log table name")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "require this API key on every request")
	cmd.Flags().StringSliceVar(&conflicts, "conflict", nil, "operations whose submissions come back as conflicts")

	return cmd
}

// logRequests logs method, path and duration of every request.
func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Printf("%s %s?%s (%s)", r.Method, r.URL.Path, r.URL.RawQuery, time.Since(start).Round(time.Microsecond))
	})
}
