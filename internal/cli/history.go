package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the persisted conversation",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List messages in the current conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}

		h := Conversation.History()
		msgs := h.Messages()
		out := cmd.OutOrStdout()
		if len(msgs) == 0 {
			fmt.Fprintln(out, "No messages.")
			return nil
		}
		if historyLimit > 0 && len(msgs) > historyLimit {
			msgs = msgs[len(msgs)-historyLimit:]
		}

		fmt.Fprintf(out, "Conversation %s (%d message(s))\n\n", h.ConversationID(), h.Len())
		for _, m := range msgs {
			fmt.Fprintf(out, "  %s  %s  %-9s %s\n",
				m.ID, m.Timestamp.Local().Format("2006-01-02 15:04"), m.Role, firstLine(m.Content, 72))
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <message-id>",
	Short: "Delete one message by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}
		if !Conversation.History().Delete(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "No message %s.\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %s.\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the history and start a new conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}
		id := Conversation.StartNew()
		fmt.Fprintf(cmd.OutOrStdout(), "Started conversation %s.\n", id)
		return nil
	},
}

// firstLine returns the first line of s, cut to limit runes.
func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit-3]) + "..."
	}
	return s
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the most recent n messages")
	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
