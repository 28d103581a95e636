package environment

import (
	"context"
	"fmt"

	"github.com/aibasel/machetli-go/internal/evaluation"
	"github.com/aibasel/machetli-go/pkg/machetli"
)

// Local evaluates all successors of a batch sequentially on the machine
// running the search driver, stopping at the first successor the evaluator
// accepts. It keeps exactly one pending winner between Submit and
// GetImprovingSuccessor, mirroring the reference LocalEnvironment's single
// "successor" field.
type Local struct {
	invoker       evaluation.Evaluator
	batchSize     int
	evaluatorPath string

	phase  machetli.Phase
	winner *machetli.Successor
}

// NewLocal returns a Local environment that hands each candidate to invoker
// for evaluation, accepting batches of at most batchSize successors.
func NewLocal(invoker evaluation.Evaluator, batchSize int) *Local {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Local{invoker: invoker, batchSize: batchSize}
}

func (e *Local) BatchSize() int { return e.batchSize }

// Submit evaluates batch in order, stopping at the first SUCCESS. TIMEOUT,
// MEMOUT, FAILURE, and ERROR outcomes are all treated as non-success and do
// not abort the batch; an evaluator that cannot be started is reported by
// the invoker as an ERROR outcome and skipped the same way. Only an error
// returned by the invoker itself (for example, failing to write the state
// file) stops the batch: it is returned and the remaining candidates are
// not tried.
func (e *Local) Submit(ctx context.Context, batch machetli.Batch, evaluatorPath string) error {
	if e.phase != machetli.PhaseIdle {
		panic("environment: Submit called while a batch is in flight")
	}
	e.evaluatorPath = evaluatorPath
	e.winner = nil

	for _, succ := range batch {
		outcome, err := e.invoker.Evaluate(ctx, evaluatorPath, succ.State)
		if err != nil {
			return fmt.Errorf("evaluate successor: %w", err)
		}
		if outcome == machetli.Success {
			s := succ
			e.winner = &s
			break
		}
	}

	e.phase = machetli.PhaseSubmitted
	return nil
}

// WaitUntilFinished is a no-op: Submit already ran every evaluation to
// completion, since the local environment has no external parallelism to
// wait on.
func (e *Local) WaitUntilFinished(ctx context.Context) error {
	if e.phase != machetli.PhaseSubmitted {
		panic("environment: WaitUntilFinished called out of phase")
	}
	e.phase = machetli.PhaseWaited
	return nil
}

func (e *Local) GetImprovingSuccessor() (machetli.Successor, bool) {
	if e.phase != machetli.PhaseWaited {
		panic("environment: GetImprovingSuccessor called out of phase")
	}
	e.phase = machetli.PhaseIdle
	w := e.winner
	e.winner = nil
	if w == nil {
		return machetli.Successor{}, false
	}
	return *w, true
}
