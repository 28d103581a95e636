// Package machetli provides the public surface of a minimization driver for
// hard-to-reproduce failures in external command-line tools.
//
// # Overview
//
// Given an initial problem instance that exhibits some property of interest
// (a bug, a discrepancy between two algorithms, a performance anomaly),
// Search looks for a smaller instance that still exhibits that property by
// greedily applying caller-supplied SuccessorGenerators and asking an
// external evaluator program whether each candidate still has the property.
//
// The package treats the search state as opaque: callers implement State and
// SuccessorGenerator for their own domain (PDDL tasks, SAS tasks, or
// anything else serializable); machetli only knows how to drive the search
// loop and hand batches of successors to an Environment for evaluation.
//
// # Usage
//
//	pipeline := machetli.GeneratorPipeline{myGenerator}
//	inv := evaluation.New(statestore.New(nil), time.Minute, 3872)
//	env := environment.NewLocal(inv, 1)
//	final, commits, err := machetli.Search(ctx, initial, pipeline, "./is_bug.sh", env)
//
// # Environments
//
// Two concrete Environment implementations live under internal/environment:
// a sequential Local environment and a Slurm-array-job Cluster environment for
// evaluating successors in parallel on a compute cluster. Both satisfy the
// Environment interface declared in this package, so Search never needs to
// know which one it is driving.
//
// # Non-goals
//
// Search never backtracks, never holds a best-first frontier, and never
// restarts progress from disk: every invocation starts fresh from the state
// passed in. Evaluating a candidate always spawns a subprocess; nothing is
// evaluated inside the calling process' address space.
package machetli
