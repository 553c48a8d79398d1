package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/internal/observability"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display escalation-chain metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include messages processed per stage and intent, model attempts and
failures, the fallback rate to web search, and tasks created and completed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := observability.ParseSince(metricsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		printMetrics(out, metrics, sinceTime)
		return nil
	},
}

func printMetrics(out io.Writer, m *observability.Metrics, since time.Time) {
	fmt.Fprintf(out, "Metrics (since %s)\n\n", since.Format("2006-01-02"))
	fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", m.EventCount)
	fmt.Fprintf(out, "  %-24s %d\n", "Messages processed:", m.MessagesProcessed)
	fmt.Fprintf(out, "  %-24s %d\n", "Model attempts:", m.ModelAttempts)
	fmt.Fprintf(out, "  %-24s %d\n", "Model failures:", m.ModelFailures)
	fmt.Fprintf(out, "  %-24s %d\n", "Auth failures:", m.AuthFailures)
	fmt.Fprintf(out, "  %-24s %d\n", "Search failures:", m.SearchFailures)
	fmt.Fprintf(out, "  %-24s %.0f%%\n", "Fallback rate:", m.FallbackRate*100)
	fmt.Fprintf(out, "  %-24s %.0fms\n", "Average latency:", m.AvgLatencyMs)
	fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", m.TasksCreated)
	fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", m.TasksCompleted)

	printCounts(out, "Messages by stage:", m.ByStage)
	printCounts(out, "Messages by intent:", m.ByIntent)

	if m.OldestEvent != nil {
		fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", m.OldestEvent.Format(time.RFC3339))
	}
	if m.NewestEvent != nil {
		fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", m.NewestEvent.Format(time.RFC3339))
	}
}

func printCounts(out io.Writer, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n  %s\n", heading)
	for _, k := range keys {
		fmt.Fprintf(out, "    %-30s %d\n", k+":", counts[k])
	}
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
