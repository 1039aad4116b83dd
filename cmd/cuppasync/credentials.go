package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cuppasync/internal/cli"
	"cuppasync/internal/credentials"
	"cuppasync/internal/utils"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage remote credentials",
		Long: `Securely manage the API key and access token using the system keyring.

Secrets are looked up in this order:
  1. System keyring (most secure) - recommended
  2. Environment variables CUPPASYNC_<PROFILE>_API_KEY / _ACCESS_TOKEN
  3. Config file remote.api_key / remote.access_token

Examples:
  # Store the API key (interactive prompt)
  cuppasync credentials set default api_key --prompt

  # Check where the secrets come from
  cuppasync credentials get default

  # Remove the access token from the keyring
  cuppasync credentials delete default access_token`,
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsGetCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())

	return cmd
}

func envName(profile, field string) string {
	return "CUPPASYNC_" + strings.ToUpper(strings.ReplaceAll(profile, "-", "_")) + "_" + strings.ToUpper(field)
}

func newCredentialsSetCmd() *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "set <profile> <api_key|access_token> [secret]",
		Short: "Store a secret in the system keyring",
		Long: `Store a secret securely in the system keyring.

If --prompt is specified, the secret is read without echo (recommended).

Examples:
  cuppasync credentials set default api_key --prompt
  cuppasync credentials set staging access_token eyJhbGciOi...`,
		Args:              cobra.RangeArgs(2, 3),
		ValidArgsFunction: cli.SecretFieldCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, field := args[0], args[1]
			if err := credentials.ValidateField(field); err != nil {
				return err
			}

			var secret string
			if prompt {
				fmt.Fprintf(cmd.OutOrStdout(), "Enter %s for profile %s: ", field, profile)
				secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", field, err)
				}
				secret = strings.TrimSpace(string(secretBytes))
			} else if len(args) == 3 {
				secret = args[2]
			} else {
				return fmt.Errorf("%s is required (use --prompt for interactive input)", field)
			}

			if err := credentials.Set(profile, field, secret); err != nil {
				if !credentials.IsAvailable() {
					return utils.WrapWithSuggestion(
						fmt.Errorf("system keyring is not available"),
						fmt.Sprintf("Use an environment variable instead:\n  export %s=<secret>", envName(profile, field)))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s stored for profile %s\n", field, profile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&prompt, "prompt", false, "prompt for the secret interactively (recommended)")
	return cmd
}

func newCredentialsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [profile]",
		Short: "Show where the secrets of a profile come from",
		Long: `Show which source provides the API key and access token of a profile.
The secrets themselves are never printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			profile := cfg.Profile
			if len(args) == 1 {
				profile = args[0]
			}

			creds, err := credentials.NewResolver().Resolve(profile, cfg.Remote.APIKey, cfg.Remote.AccessToken)
			if err != nil {
				fmt.Fprintf(out, "✗ No API key found for profile %q\n", profile)
				fmt.Fprintln(out, "\nAvailable options:")
				fmt.Fprintln(out, "  1. Store in keyring:")
				fmt.Fprintf(out, "     cuppasync credentials set %s api_key --prompt\n", profile)
				fmt.Fprintln(out, "  2. Set environment variable:")
				fmt.Fprintf(out, "     export %s=<key>\n", envName(profile, credentials.FieldAPIKey))
				fmt.Fprintln(out, "  3. Add 'remote.api_key' to the config (not recommended)")
				return err
			}

			fmt.Fprintf(out, "✓ Credentials found for profile %q\n", profile)
			fmt.Fprintf(out, "  API key: %s\n", creds.Source)
			fmt.Fprintf(out, "  Access token: %s\n", creds.TokenSource)

			switch creds.Source {
			case credentials.SourceKeyring:
				fmt.Fprintln(out, "\n✓ Using secure keyring storage (recommended)")
			case credentials.SourceEnv:
				fmt.Fprintln(out, "\n⚠ Using environment variables")
				fmt.Fprintln(out, "  Consider using keyring for better security:")
				fmt.Fprintf(out, "    cuppasync credentials set %s api_key --prompt\n", profile)
			case credentials.SourceConfig:
				fmt.Fprintln(out, "\n⚠ Using the API key from the config file (not recommended)")
				fmt.Fprintln(out, "  Consider migrating to keyring:")
				fmt.Fprintf(out, "    cuppasync credentials set %s api_key --prompt\n", profile)
			}
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <profile> <api_key|access_token>",
		Short: "Remove a secret from the system keyring",
		Long: `Remove a stored secret from the system keyring.

Environment variables and config file values are not affected.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: cli.SecretFieldCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, field := args[0], args[1]
			if err := credentials.ValidateField(field); err != nil {
				return err
			}

			if !force && !utils.PromptYesNo(fmt.Sprintf("Delete %s for profile %s from keyring?", field, profile)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			if err := credentials.Delete(profile, field); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s removed for profile %s\n", field, profile)
			fmt.Fprintln(cmd.OutOrStdout(), "\n⚠ Note: This only removed the keyring entry.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}
