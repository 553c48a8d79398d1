package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks created in this session",
	Long: `List the task list in creation order.

Tasks are created and completed by talking to the assistant ("add task buy
milk", "complete task 1") and live only as long as the running process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		tasks := Tasks.ListTasks()
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks in this session.")
			return nil
		}
		for i, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, mark, t.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
