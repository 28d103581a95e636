package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aibasel/machetli-go/internal/history"
	"github.com/aibasel/machetli-go/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the commit log of prior search runs",
	Long: `Print a report for each run recorded by a prior "machetli search"
invocation, most recent first.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	flags := historyCmd.Flags()
	flags.String("history-db", "machetli-history.db", "path to the run-history SQLite database")
	flags.Int("limit", 10, "maximum number of runs to print (0 = all)")
	flags.String("format", "text", "report format: text, json, or html")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("history-db")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	store, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("load run history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded yet")
		return nil
	}

	for i, run := range runs {
		if i > 0 {
			fmt.Fprintln(out, "---")
		}
		summary := report.Summary{
			Environment:  run.Environment,
			EvalDir:      run.EvalDir,
			InitialLabel: run.InitialLabel,
			FinalLabel:   run.FinalLabel,
			StartedAt:    run.StartedAt,
			FinishedAt:   run.FinishedAt,
			Outcome:      run.Outcome,
			Error:        run.Error,
			Commits:      run.Commits,
		}
		if err := report.Generate(summary, report.Format(format), out); err != nil {
			return fmt.Errorf("render run %d: %w", run.ID, err)
		}
	}
	return nil
}
