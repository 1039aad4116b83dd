package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cuppasync/internal/app"
	"cuppasync/internal/config"
	"cuppasync/internal/credentials"
	"cuppasync/internal/utils"
)

var (
	configPath string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cuppasync",
		Short: "Offline mutation queue and sync engine",
		Long: `cuppasync queues mutations while offline and replays them against a
remote mutation log once connectivity returns.

Examples:
  cuppasync enqueue rate_coffee --payload '{"coffeeId":"c1","rating":5}'
  cuppasync queue -o json
  cuppasync sync --tui
  cuppasync watch`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			utils.SetVerboseMode(verbose)
			if configPath != "" {
				config.SetCustomConfigPath(configPath)
			}
			// A missing .env is the common case.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				utils.Warnf("failed to load .env: %v", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file or directory (default $XDG_CONFIG_HOME/cuppasync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newEnqueueCmd())
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCredentialsCmd())
	rootCmd.AddCommand(newDevServerCmd())
	rootCmd.AddCommand(newBackgroundSyncCmd())

	return rootCmd
}

// loadApp loads the active config and builds an App writing toasts to out.
func loadApp(out io.Writer) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewApp(cfg, out, credentials.NewResolver())
}

// loadConfig reads the --config file strictly, or the user config
// (offering to create it) otherwise.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		path, err := config.GetConfigPath()
		if err != nil {
			return nil, err
		}
		return config.Load(path)
	}
	return config.GetConfig(), nil
}

// configArgs forwards --config to a spawned child process.
func configArgs() []string {
	if configPath == "" {
		return nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []string{"--config", path}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
