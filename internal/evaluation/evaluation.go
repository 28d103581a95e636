// Package evaluation implements the evaluator invoker: given a serialized
// state and an evaluator program path, it runs the evaluator and classifies
// the outcome as success, failure, timeout, memout, or error.
package evaluation

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/aibasel/machetli-go/internal/runner"
	"github.com/aibasel/machetli-go/internal/statestore"
	"github.com/aibasel/machetli-go/pkg/machetli"
)

// Evaluator is the capability environments depend on to judge a single
// successor. *Invoker is the production implementation; tests substitute a
// fake so environment control flow (which successor wins, which is skipped)
// can be exercised without spawning real subprocesses, the same way the
// teacher's executor depends on a ParserRegistry interface rather than a
// concrete parser.
type Evaluator interface {
	Evaluate(ctx context.Context, evaluatorPath string, state machetli.State) (machetli.Outcome, error)
}

// Invoker runs an evaluator program against a state written to a temporary
// file, for use by environments that evaluate in-process (the local
// environment) rather than on a remote compute node.
type Invoker struct {
	Store          *statestore.Store
	TimeLimit      time.Duration
	MemoryLimitMiB int64
}

// New returns an Invoker with the given resource limits, using store to
// serialize states to disk.
func New(store *statestore.Store, timeLimit time.Duration, memoryLimitMiB int64) *Invoker {
	return &Invoker{Store: store, TimeLimit: timeLimit, MemoryLimitMiB: memoryLimitMiB}
}

// Evaluate writes state to a temporary file and runs evaluatorPath against
// it, returning the classified Outcome.
func (inv *Invoker) Evaluate(ctx context.Context, evaluatorPath string, state machetli.State) (machetli.Outcome, error) {
	tmp, err := os.CreateTemp("", "machetli-state-*.bin")
	if err != nil {
		return machetli.Error, err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := inv.Store.Write(state, path); err != nil {
		return machetli.Error, err
	}

	result, runErr := runner.Run(ctx, []string{evaluatorPath, path}, inv.TimeLimit, inv.MemoryLimitMiB, "")
	if runErr != nil {
		// The evaluator could not even be started.
		return machetli.Error, nil
	}

	return ClassifyExitCode(result.ExitCode, result.Signal), nil
}

// ClassifyExitCode maps a subprocess runner result to an Outcome per the
// evaluator exit-code contract: 0 is success, the two reserved codes are
// timeout/memout, any other non-zero exit is an ordinary failure verdict,
// and termination by a signal other than the CPU resource-limit signal is
// treated as an evaluator error (the process crashed rather than producing
// a verdict). A process killed by the CPU limit signal before it could
// catch SIGXCPU and exit with the reserved timeout code is still reported
// as a timeout, since that is the only faithful interpretation of "why did
// this process stop."
func ClassifyExitCode(exitCode int, sig syscall.Signal) machetli.Outcome {
	if sig != 0 {
		if sig == syscall.SIGXCPU {
			return machetli.Timeout
		}
		return machetli.Error
	}

	switch exitCode {
	case 0:
		return machetli.Success
	case machetli.ExitCodeTimeout:
		return machetli.Timeout
	case machetli.ExitCodeMemout:
		return machetli.Memout
	default:
		return machetli.Failure
	}
}
