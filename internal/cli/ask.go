package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askJSON    bool
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Send one message and print the reply",
	Long: `Send a single message through the assistant and print the reply.

The exchange is appended to the persisted conversation, so it shows up in
"kiya history list" and in the next "kiya chat" session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}

		ex, err := Conversation.Submit(commandContext(cmd), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("sending message: %w", err)
		}

		out := cmd.OutOrStdout()
		if askJSON {
			data, err := json.MarshalIndent(ex, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting reply as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, ex.Reply.Content)
		if askVerbose {
			fmt.Fprintf(out, "\n  stage: %s  intent: %s  model attempted: %t\n",
				ex.Outcome.Stage, ex.Outcome.Intent, ex.Outcome.ModelAttempted)
		}
		return nil
	},
}

// commandContext returns the command's context, or a background context
// when the command is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full exchange as JSON")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Show how the reply was resolved")
	rootCmd.AddCommand(askCmd)
}
