package machetli

import "time"

// State is an opaque search state. The engine never inspects its contents;
// only a SuccessorGenerator and the external evaluator program interpret it.
// The engine itself carries no serialization method on State: the on-disk
// encoding written for evaluator subprocesses and cluster task directories
// is entirely owned by Codec (see codec.go), so implementations must
// round-trip through their Codec with semantic equality preserved, not
// through any method of their own.
type State interface{}

// Successor pairs a candidate state with a human-readable description of the
// reduction that produced it.
type Successor struct {
	State       State
	ChangeLabel string
}

// SuccessorStream is a lazy, finite, forward-only sequence of successors.
// Consumers may stop calling Next at any point ("early abandonment"); a
// SuccessorStream must not leak resources when abandoned partway through,
// and implementations that hold a goroutine or file handle must release it
// from Close.
type SuccessorStream interface {
	// Next returns the next successor in the stream. ok is false once the
	// stream is exhausted; err is non-nil only on a generator-internal
	// failure, which also ends the stream.
	Next() (succ Successor, ok bool, err error)

	// Close releases any resources held by the stream. Safe to call after
	// the stream is exhausted or abandoned early; safe to call more than
	// once.
	Close() error
}

// SuccessorGenerator is a stateless factory producing a SuccessorStream for
// a given state. The engine does not assume any particular ordering beyond
// what a concrete generator documents, but treats whatever order is
// produced as significant for the commit rule in deterministic mode.
type SuccessorGenerator interface {
	Successors(state State) SuccessorStream
}

// GeneratorPipeline is an ordered list of generators consulted in sequence.
// Once any generator in the pipeline produces an improving successor, the
// search restarts at index 0 on the new state, so generators earlier in the
// list are effectively preferred for repeated application.
type GeneratorPipeline []SuccessorGenerator

// CommitRecord describes one accepted successor during a search run. It is
// not part of the search/environment contract from the original design but
// is produced by Search as a lightweight audit trail for reporting and
// history tools built on top of the engine.
type CommitRecord struct {
	GeneratorIndex int       `json:"generator_index"`
	ChangeLabel    string    `json:"change_label"`
	Timestamp      time.Time `json:"timestamp"`
}

// Batch is the in-memory list of successors handed to an Environment in one
// submit/wait/collect cycle. It is always non-empty and never exceeds the
// environment's configured batch size.
type Batch []Successor
