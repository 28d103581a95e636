package machetli

import "context"

// Environment evaluates a Batch of successors and reports whether any of
// them should be committed to. It is driven through a strict three-phase
// cycle by Search: Submit, then WaitUntilFinished, then
// GetImprovingSuccessor. Calling these out of phase is a programming error
// and concrete implementations panic rather than returning an error for it,
// the same way the search driver itself never recovers from violating its
// own contract.
type Environment interface {
	// Submit begins evaluating batch with the given evaluator program.
	// Precondition: no batch is currently in flight.
	Submit(ctx context.Context, batch Batch, evaluatorPath string) error

	// WaitUntilFinished blocks until enough of the in-flight batch's
	// results are available to decide on a winner (or conclude there is
	// none). Precondition: a batch is in flight. A cancelled ctx is only
	// honored at poll/sleep boundaries, never mid-sleep -- see the design
	// notes on why graceful shutdown is intentionally not modeled here.
	WaitUntilFinished(ctx context.Context) error

	// GetImprovingSuccessor returns the winning successor, or ok=false if
	// none of the batch's candidates should be committed to. Releases the
	// in-flight batch. Precondition: WaitUntilFinished has returned for the
	// current batch.
	GetImprovingSuccessor() (succ Successor, ok bool)

	// BatchSize is the maximum number of successors this environment will
	// accept in a single Submit call.
	BatchSize() int
}

// AllowNondeterministicSuccessorChoiceDefault is the default commit policy.
// When the policy is true, a parallel environment may commit to the first
// successfully evaluated successor even if it would not have come first in
// sequential order; when false, it behaves deterministically, simulating
// sequential evaluation -- see ClusterOptions.Deterministic in
// internal/environment. The local environment is always sequential.
const AllowNondeterministicSuccessorChoiceDefault = true

// Phase enumerates the three-phase submit/wait/collect lifecycle enforced by
// concrete Environment implementations.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitted
	PhaseWaited
)
