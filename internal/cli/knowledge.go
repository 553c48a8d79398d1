package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/internal/core"
)

var knowledgeForce bool

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage canned answers",
	Long: `Manage the canned answers the assistant gives without calling the model.

Entries live in knowledge.yaml in the KIYA home directory. When the file is
absent the built-in greetings, time, identity and help answers are used.`,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active knowledge entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if KnowledgeFile == nil {
			return fmt.Errorf("knowledge file not initialized")
		}

		entries, ok, err := KnowledgeFile.Load()
		if err != nil {
			return fmt.Errorf("loading knowledge: %w", err)
		}
		out := cmd.OutOrStdout()
		if !ok {
			entries = core.DefaultKnowledgeEntries()
			fmt.Fprintf(out, "Using built-in entries (%s not found).\n\n", KnowledgeFile.Path())
		} else {
			fmt.Fprintf(out, "%d entries from %s:\n\n", len(entries), KnowledgeFile.Path())
		}

		for _, e := range entries {
			kind := "contains"
			if e.Exact {
				kind = "exact"
			}
			fmt.Fprintf(out, "  %-12s %-9s %s\n", e.Name, kind, strings.Join(e.Patterns, ", "))
			fmt.Fprintf(out, "  %-12s %-9s -> %s\n", "", "", firstLine(e.Answer, 60))
		}
		return nil
	},
}

var knowledgeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in entries to knowledge.yaml for editing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if KnowledgeFile == nil {
			return fmt.Errorf("knowledge file not initialized")
		}

		path := KnowledgeFile.Path()
		if _, err := os.Stat(path); err == nil && !knowledgeForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := KnowledgeFile.Save(core.DefaultKnowledgeEntries()); err != nil {
			return fmt.Errorf("writing knowledge file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", path)
		return nil
	},
}

func init() {
	knowledgeInitCmd.Flags().BoolVar(&knowledgeForce, "force", false, "Overwrite an existing file")
	knowledgeCmd.AddCommand(knowledgeListCmd, knowledgeInitCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
