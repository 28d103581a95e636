package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibasel/machetli-go/internal/config"
	"github.com/aibasel/machetli-go/internal/environment"
	"github.com/aibasel/machetli-go/internal/evaluation"
	"github.com/aibasel/machetli-go/internal/history"
	"github.com/aibasel/machetli-go/internal/report"
	"github.com/aibasel/machetli-go/internal/statestore"
	"github.com/aibasel/machetli-go/pkg/machetli"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the greedy-descent minimization search",
	Long: `Search for a smaller instance that still exhibits the property the
evaluator checks for, by repeatedly applying the registered reduction
pipeline and consulting the evaluator.`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	flags := searchCmd.Flags()
	flags.String("evaluator", "", "path to the evaluator executable (required)")
	flags.String("state", "", "path to the initial state file (required)")
	flags.StringSlice("pipeline", nil, "comma-separated list of registered generator names, in order")
	flags.String("environment", "local", `evaluation environment: "local" or "cluster"`)
	flags.Int("batch-size", 0, "successors evaluated per batch")
	flags.Duration("time-limit", 0, "per-evaluation CPU time limit")
	flags.Int64("memory-limit", 0, "per-evaluation memory limit in MiB")
	flags.Bool("deterministic", false, "disable nondeterministic successor choice under parallel evaluation")

	flags.String("eval-dir", "", "cluster environment: shared evaluation directory")
	flags.String("partition", "", "cluster environment: Slurm partition")
	flags.String("qos", "", "cluster environment: Slurm QoS")
	flags.String("memory-per-cpu", "", "cluster environment: memory per CPU, e.g. 3872M")
	flags.Int("cpus-per-task", 0, "cluster environment: CPUs per array-job task")
	flags.Int("nice", 0, "cluster environment: Slurm nice value")
	flags.String("extra-options", "", "cluster environment: extra #SBATCH lines")
	flags.String("setup", "", "cluster environment: shell snippet sourced before the evaluator runs")
	flags.StringSlice("export", nil, "cluster environment: environment variables forwarded to sbatch --export")

	flags.String("report", "", "report format: text, json, or html")
	flags.String("report-output", "", "report output file (default: stdout)")
	flags.String("history-db", "", "path to the run-history SQLite database")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	pipeline, err := buildPipeline(cfg.Pipeline)
	if err != nil {
		return err
	}

	store := statestore.New(nil)
	initial, err := store.Read(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("reading initial state: %w", err)
	}

	env, err := buildEnvironment(cfg, store)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	slog.Info("starting search", "environment", cfg.Environment, "batch_size", env.BatchSize())
	final, commits, searchErr := machetli.Search(ctx, initial, pipeline, cfg.Evaluator, env)
	finished := time.Now()

	summary := report.Summary{
		Environment:  cfg.Environment,
		EvalDir:      cfg.EvalDir,
		InitialLabel: fmt.Sprintf("%v", initial),
		FinalLabel:   fmt.Sprintf("%v", final),
		StartedAt:    started,
		FinishedAt:   finished,
		Outcome:      "ok",
		Commits:      commits,
	}
	if searchErr != nil {
		summary.Outcome = "error"
		summary.Error = searchErr.Error()
	}

	if recErr := recordHistory(cfg, summary); recErr != nil {
		slog.Warn("could not record run history", "error", recErr)
	}

	if err := writeReport(cfg, summary); err != nil {
		slog.Warn("could not render report", "error", err)
	}

	return searchErr
}

func buildEnvironment(cfg *config.Config, store *statestore.Store) (machetli.Environment, error) {
	switch cfg.Environment {
	case "local":
		inv := evaluation.New(store, cfg.TimeLimit, cfg.MemoryLimitMiB)
		return environment.NewLocal(inv, cfg.BatchSize), nil
	case "cluster":
		return environment.NewCluster(environment.ClusterOptions{
			EvalDir:       cfg.EvalDir,
			Scheduler:     environment.NewSlurmScheduler(),
			Store:         store,
			Partition:     cfg.Partition,
			QOS:           cfg.QOS,
			MemoryPerCPU:  cfg.MemoryPerCPU,
			CPUsPerTask:   cfg.CPUsPerTask,
			Nice:          cfg.Nice,
			Export:        cfg.Export,
			Setup:         cfg.Setup,
			ExtraOptions:  cfg.ExtraOptions,
			BatchSize:     cfg.BatchSize,
			Deterministic: cfg.Deterministic,
		})
	default:
		return nil, fmt.Errorf("cmd: unknown environment %q", cfg.Environment)
	}
}

func recordHistory(cfg *config.Config, summary report.Summary) error {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	_, err = store.RecordRun(history.Run{
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Environment:  summary.Environment,
		EvalDir:      summary.EvalDir,
		InitialLabel: summary.InitialLabel,
		FinalLabel:   summary.FinalLabel,
		Outcome:      summary.Outcome,
		Error:        summary.Error,
		Commits:      summary.Commits,
	})
	return err
}

func writeReport(cfg *config.Config, summary report.Summary) error {
	w := os.Stdout
	if cfg.ReportOutput != "" {
		f, err := os.Create(cfg.ReportOutput)
		if err != nil {
			return fmt.Errorf("create report output: %w", err)
		}
		defer f.Close()
		return report.Generate(summary, report.Format(cfg.ReportFormat), f)
	}
	return report.Generate(summary, report.Format(cfg.ReportFormat), w)
}
