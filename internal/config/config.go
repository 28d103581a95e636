// Package config resolves "machetli search" settings from command-line
// flags, MACHETLI_-prefixed environment variables, and a machetli.yaml file
// in the working directory, in that precedence order, the same layering
// the teacher's internal/cmd/root.go applies to benchflow.yaml.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting the "search" command needs to construct an
// environment and hand it to machetli.Search.
type Config struct {
	Evaluator      string
	StatePath      string
	Pipeline       []string
	Environment    string // "local" or "cluster"
	BatchSize      int
	TimeLimit      time.Duration
	MemoryLimitMiB int64
	Deterministic  bool

	EvalDir      string
	Partition    string
	QOS          string
	MemoryPerCPU string
	CPUsPerTask  int
	Nice         int
	ExtraOptions string
	Setup        string
	Export       []string

	ReportFormat string
	ReportOutput string
	HistoryDB    string
	Verbose      bool
}

// Load reads machetli.yaml (if present), binds cmd's flags into viper, and
// returns the resolved Config. Flags take precedence over environment
// variables, which take precedence over the config file, which takes
// precedence over the defaults set here.
func Load(cmd *cobra.Command) (*Config, error) {
	viper.SetEnvPrefix("MACHETLI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("machetli")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read machetli.yaml: %w", err)
		}
	}

	setDefaults()

	if err := bindFlags(cmd); err != nil {
		return nil, err
	}

	cfg := &Config{
		Evaluator:      viper.GetString("evaluator"),
		StatePath:      viper.GetString("state"),
		Pipeline:       viper.GetStringSlice("pipeline"),
		Environment:    viper.GetString("environment"),
		BatchSize:      viper.GetInt("batch-size"),
		TimeLimit:      viper.GetDuration("time-limit"),
		MemoryLimitMiB: viper.GetInt64("memory-limit"),
		Deterministic:  viper.GetBool("deterministic"),
		EvalDir:        viper.GetString("eval-dir"),
		Partition:      viper.GetString("partition"),
		QOS:            viper.GetString("qos"),
		MemoryPerCPU:   viper.GetString("memory-per-cpu"),
		CPUsPerTask:    viper.GetInt("cpus-per-task"),
		Nice:           viper.GetInt("nice"),
		ExtraOptions:   viper.GetString("extra-options"),
		Setup:          viper.GetString("setup"),
		Export:         viper.GetStringSlice("export"),
		ReportFormat:   viper.GetString("report"),
		ReportOutput:   viper.GetString("report-output"),
		HistoryDB:      viper.GetString("history-db"),
		Verbose:        viper.GetBool("verbose"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Evaluator == "" {
		return fmt.Errorf("config: --evaluator is required")
	}
	if c.StatePath == "" {
		return fmt.Errorf("config: --state is required")
	}
	if c.Environment != "local" && c.Environment != "cluster" {
		return fmt.Errorf("config: --environment must be %q or %q, got %q", "local", "cluster", c.Environment)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "local")
	viper.SetDefault("batch-size", 200)
	viper.SetDefault("time-limit", 60*time.Second)
	viper.SetDefault("memory-limit", int64(3872))
	viper.SetDefault("cpus-per-task", 1)
	viper.SetDefault("eval-dir", "eval_dir")
	viper.SetDefault("report", "text")
	viper.SetDefault("history-db", "machetli-history.db")
}

// bindFlags binds every flag cmd defines to viper under its own name, so
// GetX calls above see an explicitly-set flag ahead of the config file or
// defaults, without a long hand-written list of BindPFlag calls per flag.
func bindFlags(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(f.Name, f)
	})
	return bindErr
}
