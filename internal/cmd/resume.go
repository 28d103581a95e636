package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aibasel/machetli-go/internal/evaluation"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Inspect leftover batch directories from a cluster run",
	Long: `machetli never deletes a cluster environment's batch_NNN run
directories after a search finishes; "resume" walks eval-dir and reports
each task's scheduler-independent outcome (from its exit_code file) for
post-mortem inspection.`,
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().String("eval-dir", "", "evaluation directory a cluster search ran in (required)")
}

type taskOutcome struct {
	index   int
	dir     string
	hasCode bool
	code    int
}

func runResume(cmd *cobra.Command, args []string) error {
	evalDir, _ := cmd.Flags().GetString("eval-dir")
	if evalDir == "" {
		return fmt.Errorf("cmd: --eval-dir is required")
	}

	entries, err := os.ReadDir(evalDir)
	if err != nil {
		return fmt.Errorf("reading eval dir %q: %w", evalDir, err)
	}

	var batchNames []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "batch_") {
			batchNames = append(batchNames, e.Name())
		}
	}
	sort.Strings(batchNames)

	if len(batchNames) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no batch directories found under %s\n", evalDir)
		return nil
	}

	for _, name := range batchNames {
		batchDir := filepath.Join(evalDir, name)
		outcomes, err := inspectBatch(batchDir)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", batchDir, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d tasks)\n", name, len(outcomes))
		for _, o := range outcomes {
			if !o.hasCode {
				fmt.Fprintf(cmd.OutOrStdout(), "  %03d  (no exit_code file -- task never finished or was never collected)\n", o.index)
				continue
			}
			outcome := evaluation.ClassifyExitCode(o.code, 0)
			fmt.Fprintf(cmd.OutOrStdout(), "  %03d  exit_code=%d  %v\n", o.index, o.code, outcome)
		}
	}
	return nil
}

func inspectBatch(batchDir string) ([]taskOutcome, error) {
	entries, err := os.ReadDir(batchDir)
	if err != nil {
		return nil, err
	}

	var outcomes []taskOutcome
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		index, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		taskDir := filepath.Join(batchDir, e.Name())
		o := taskOutcome{index: index, dir: taskDir}
		if raw, err := os.ReadFile(filepath.Join(taskDir, "exit_code")); err == nil {
			if code, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil {
				o.hasCode = true
				o.code = code
			}
		}
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })
	return outcomes, nil
}
