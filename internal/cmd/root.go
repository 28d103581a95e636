// Package cmd implements the machetli CLI: a thin cobra wrapper around
// pkg/machetli that wires environment selection, resource limits, history
// persistence, and reporting around a caller-registered generator pipeline
// (see registry.go -- successor generators themselves are out of scope for
// this module).
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "machetli",
	Short: "Greedy-descent minimization driver for hard-to-reproduce failures",
	Long: `machetli searches for a smaller instance that still exhibits a property of
interest, by repeatedly applying caller-supplied reduction transformations
and consulting an external evaluator oracle.

A binary embedding this package must call cmd.RegisterGenerator for every
named reduction it wants "machetli search --pipeline" to offer; this
package ships with none, since the reductions themselves are domain-
specific and out of scope here.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initLogger sets up the global logger based on verbosity, exactly as the
// teacher's CLI does for its own --verbose flag.
func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
