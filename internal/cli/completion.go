package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"cuppasync/internal/credentials"
)

// OperationCompletion completes the first argument with operation names
// returned by known, typically those already in the queue.
func OperationCompletion(known func() []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return withPrefix(known(), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// SecretFieldCompletion completes "<profile> <field>" arguments: the
// profile is free-form, the field is api_key or access_token.
func SecretFieldCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 1 {
		return withPrefix(credentials.Fields(), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func withPrefix(candidates []string, toComplete string) []string {
	var completions []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(toComplete)) {
			completions = append(completions, c)
		}
	}
	return completions
}
