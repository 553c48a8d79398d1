package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check credentials, speech and upstream services",
	Long: `Report whether the assistant can reach each stage of its escalation chain:
the stored API key, the language-model endpoint, the search sources and the
speech command. Exits with an error when a required service is unreachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Health == nil {
			return fmt.Errorf("health checker not initialized")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Home: %s\n\n", BasePath)

		if Credentials != nil {
			if _, ok := Credentials.Get(); ok {
				printCheck(out, true, "API key", "configured")
			} else {
				printCheck(out, false, "API key", "missing; model stage will be skipped")
			}
		}

		if Conversation != nil && Conversation.Speech() != nil {
			voice := "default voice"
			if v := Conversation.Speech().Voice(); v != nil {
				voice = v.Name
			}
			printCheck(out, true, "Speech", voice)
		} else {
			printCheck(out, true, "Speech", "disabled")
		}

		failed := 0
		for _, s := range Health.Check(commandContext(cmd), HealthTargets) {
			if s.Healthy {
				printCheck(out, true, s.Name, fmt.Sprintf("%s (%dms)", s.URL, s.ResponseTime.Milliseconds()))
				continue
			}
			failed++
			printCheck(out, false, s.Name, fmt.Sprintf("%s: %s", s.URL, s.Error))
		}

		if failed > 0 {
			return fmt.Errorf("%d service(s) unreachable", failed)
		}
		return nil
	},
}

func printCheck(out io.Writer, ok bool, name, detail string) {
	mark := statusDone.Render("ok  ")
	if !ok {
		mark = statusBlocked.Render("FAIL")
	}
	fmt.Fprintf(out, "  %s %-16s %s\n", mark, name, detail)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
