// Command machetli is the default machetli binary: it registers no
// reduction generators of its own (they are domain-specific and out of
// scope for this module) and exposes only the "history" and "resume"
// commands in a useful form out of the box. A domain embedding this
// project links against internal/cmd instead, calling cmd.RegisterGenerator
// from its own main before cmd.Execute.
package main

import (
	"fmt"
	"os"

	"github.com/aibasel/machetli-go/internal/cmd"
	"github.com/aibasel/machetli-go/internal/runner"
)

func main() {
	runner.MaybeRunTrampoline()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
