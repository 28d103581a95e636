package environment

import (
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibasel/machetli-go/internal/evaluation"
	"github.com/aibasel/machetli-go/internal/runner"
	"github.com/aibasel/machetli-go/internal/statestore"
	"github.com/aibasel/machetli-go/pkg/machetli"
)

type intState int

func init() {
	gob.Register(intState(0))
}

func TestMain(m *testing.M) {
	runner.MaybeRunTrampoline()
	os.Exit(m.Run())
}

// fakeEvaluator reports a fixed outcome per state without spawning a
// subprocess, letting environment control flow (which candidate wins, which
// is skipped) be exercised in isolation from the runner/evaluation stack.
type fakeEvaluator struct {
	outcomeFor func(machetli.State) machetli.Outcome
}

func (f fakeEvaluator) Evaluate(ctx context.Context, evaluatorPath string, state machetli.State) (machetli.Outcome, error) {
	return f.outcomeFor(state), nil
}

// Scenario 3: a candidate whose evaluation times out must be classified
// TIMEOUT, not SUCCESS, and the local environment must continue on to the
// next successor in the batch rather than treating the timeout as a winner
// or aborting.
func TestLocal_TimeoutIsNotSuccessAndSearchAdvances(t *testing.T) {
	eval := fakeEvaluator{outcomeFor: func(s machetli.State) machetli.Outcome {
		if s.(intState) == 1 {
			return machetli.Timeout
		}
		return machetli.Success
	}}
	env := NewLocal(eval, 2)

	batch := machetli.Batch{
		{State: intState(1), ChangeLabel: "slow"},
		{State: intState(2), ChangeLabel: "fast"},
	}

	if err := env.Submit(context.Background(), batch, "unused"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := env.WaitUntilFinished(context.Background()); err != nil {
		t.Fatalf("WaitUntilFinished: %v", err)
	}
	winner, ok := env.GetImprovingSuccessor()
	if !ok {
		t.Fatal("expected a winner, got none")
	}
	if winner.ChangeLabel != "fast" {
		t.Fatalf("winner = %q, want %q", winner.ChangeLabel, "fast")
	}
}

func TestLocal_NoSuccessYieldsNoWinner(t *testing.T) {
	eval := fakeEvaluator{outcomeFor: func(machetli.State) machetli.Outcome { return machetli.Failure }}
	env := NewLocal(eval, 2)

	batch := machetli.Batch{{State: intState(1)}, {State: intState(2)}}
	if err := env.Submit(context.Background(), batch, "unused"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := env.WaitUntilFinished(context.Background()); err != nil {
		t.Fatalf("WaitUntilFinished: %v", err)
	}
	if _, ok := env.GetImprovingSuccessor(); ok {
		t.Fatal("expected no winner")
	}
}

func TestLocal_PhaseDisciplinePanicsOutOfOrder(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling WaitUntilFinished before Submit")
		}
	}()
	env := NewLocal(fakeEvaluator{outcomeFor: func(machetli.State) machetli.Outcome { return machetli.Success }}, 1)
	_ = env.WaitUntilFinished(context.Background())
}

// TestLocal_RealEvaluatorTimeout exercises the real runner/evaluation stack
// (not the fake) end to end: a CPU-bound evaluator under a tight time limit
// must be classified as a timeout rather than a crash or a false success.
func TestLocal_RealEvaluatorTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busyloop.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nwhile :; do :; done\n"), 0o755); err != nil {
		t.Fatalf("writing evaluator script: %v", err)
	}

	inv := evaluation.New(statestore.New(nil), time.Second, 256)
	env := NewLocal(inv, 1)

	batch := machetli.Batch{{State: intState(7), ChangeLabel: "busy"}}
	if err := env.Submit(context.Background(), batch, path); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := env.WaitUntilFinished(context.Background()); err != nil {
		t.Fatalf("WaitUntilFinished: %v", err)
	}
	if _, ok := env.GetImprovingSuccessor(); ok {
		t.Fatal("a CPU-limit timeout must never be reported as a winner")
	}
}
