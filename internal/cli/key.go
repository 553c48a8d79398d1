package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored language-model API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the API key",
	Long: `Store the API key used for language-model calls.

When no argument is given the key is read from the first line of stdin, which
keeps it out of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Credentials == nil {
			return fmt.Errorf("credential store not initialized")
		}

		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading key from stdin: %w", err)
			}
			key = line
		}

		if err := Credentials.Set(strings.TrimSpace(key)); err != nil {
			return fmt.Errorf("storing key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key stored.")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Credentials == nil {
			return fmt.Errorf("credential store not initialized")
		}
		if err := Credentials.Clear(); err != nil {
			return fmt.Errorf("clearing key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Credentials == nil {
			return fmt.Errorf("credential store not initialized")
		}
		key, ok := Credentials.Get()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No API key configured. Replies will come from web search.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key configured (%s).\n", maskKey(key))
		return nil
	},
}

// maskKey shows only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyClearCmd, keyStatusCmd)
	rootCmd.AddCommand(keyCmd)
}
