package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSearchFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "search"}
	cmd.Flags().String("evaluator", "", "")
	cmd.Flags().String("state", "", "")
	cmd.Flags().StringSlice("pipeline", nil, "")
	cmd.Flags().String("environment", "local", "")
	cmd.Flags().Int("batch-size", 0, "")
	cmd.Flags().Duration("time-limit", 0, "")
	cmd.Flags().Int64("memory-limit", 0, "")
	cmd.Flags().Bool("deterministic", false, "")
	cmd.Flags().String("eval-dir", "", "")
	cmd.Flags().String("partition", "", "")
	cmd.Flags().String("qos", "", "")
	cmd.Flags().String("memory-per-cpu", "", "")
	cmd.Flags().Int("cpus-per-task", 0, "")
	cmd.Flags().Int("nice", 0, "")
	cmd.Flags().String("extra-options", "", "")
	cmd.Flags().String("setup", "", "")
	cmd.Flags().StringSlice("export", nil, "")
	cmd.Flags().String("report", "", "")
	cmd.Flags().String("report-output", "", "")
	cmd.Flags().String("history-db", "", "")
	cmd.Flags().Bool("verbose", false, "")
	return cmd
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	resetViper(t)
	cmd := newSearchFlagsCmd()
	_ = cmd.Flags().Set("evaluator", "./is_bug.sh")
	_ = cmd.Flags().Set("state", "initial.state")

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.BatchSize != 200 {
		t.Errorf("BatchSize = %d, want 200", cfg.BatchSize)
	}
	if cfg.TimeLimit != 60*time.Second {
		t.Errorf("TimeLimit = %v, want 60s", cfg.TimeLimit)
	}
}

func TestLoad_FlagOverridesDefault(t *testing.T) {
	resetViper(t)
	cmd := newSearchFlagsCmd()
	_ = cmd.Flags().Set("evaluator", "./is_bug.sh")
	_ = cmd.Flags().Set("state", "initial.state")
	_ = cmd.Flags().Set("batch-size", "50")
	_ = cmd.Flags().Set("environment", "cluster")
	_ = cmd.Flags().Set("deterministic", "true")

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.BatchSize)
	}
	if cfg.Environment != "cluster" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "cluster")
	}
	if !cfg.Deterministic {
		t.Error("expected Deterministic to be true")
	}
}

func TestLoad_EnvVarOverridesDefault(t *testing.T) {
	resetViper(t)
	os.Setenv("MACHETLI_BATCH_SIZE", "77")
	t.Cleanup(func() { os.Unsetenv("MACHETLI_BATCH_SIZE") })

	cmd := newSearchFlagsCmd()
	_ = cmd.Flags().Set("evaluator", "./is_bug.sh")
	_ = cmd.Flags().Set("state", "initial.state")

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != 77 {
		t.Errorf("BatchSize = %d, want 77 (from MACHETLI_BATCH_SIZE)", cfg.BatchSize)
	}
}

func TestLoad_MissingEvaluatorIsAnError(t *testing.T) {
	resetViper(t)
	cmd := newSearchFlagsCmd()
	_ = cmd.Flags().Set("state", "initial.state")

	if _, err := Load(cmd); err == nil {
		t.Fatal("expected an error when --evaluator is not set")
	}
}

func TestLoad_InvalidEnvironmentIsAnError(t *testing.T) {
	resetViper(t)
	cmd := newSearchFlagsCmd()
	_ = cmd.Flags().Set("evaluator", "./is_bug.sh")
	_ = cmd.Flags().Set("state", "initial.state")
	_ = cmd.Flags().Set("environment", "laptop")

	if _, err := Load(cmd); err == nil {
		t.Fatal("expected an error for an invalid --environment value")
	}
}
