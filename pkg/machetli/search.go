package machetli

import (
	"context"
	"fmt"
	"time"
)

// Search runs greedy descent over pipeline starting from initial, using env
// to evaluate batches of successors against the evaluator program at
// evaluatorPath. It returns the final (possibly unchanged) state together
// with an audit trail of every commit made along the way.
//
// The algorithm is a direct translation of the reference greedy-descent
// loop: ask the current generator for the next batch of successors, hand it
// to env, and either adopt the first improving successor (restarting the
// pipeline from index 0) or advance to the next generator. Search
// terminates once every generator in the pipeline has produced no
// improving successor for the current state.
func Search(ctx context.Context, initial State, pipeline GeneratorPipeline, evaluatorPath string, env Environment) (State, []CommitRecord, error) {
	current := initial
	var commits []CommitRecord

	i := 0
	for i < len(pipeline) {
		if err := ctx.Err(); err != nil {
			return current, commits, err
		}

		stream := pipeline[i].Successors(current)
		improved, err := runGenerator(ctx, stream, i, evaluatorPath, env, &current, &commits)
		stream.Close()
		if err != nil {
			return current, commits, err
		}
		if !improved {
			i++
		} else {
			i = 0
		}
	}

	return current, commits, nil
}

// runGenerator drains one generator's stream in batches, submitting each
// batch to env until either an improving successor is found (in which case
// it updates *current and *commits and returns improved=true) or the
// stream is exhausted.
func runGenerator(ctx context.Context, stream SuccessorStream, genIndex int, evaluatorPath string, env Environment, current *State, commits *[]CommitRecord) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		batch, err := nextBatch(stream, env.BatchSize())
		if err != nil {
			return false, fmt.Errorf("generator %d: %w", genIndex, err)
		}
		if len(batch) == 0 {
			return false, nil
		}

		if err := env.Submit(ctx, batch, evaluatorPath); err != nil {
			return false, fmt.Errorf("submit batch for generator %d: %w", genIndex, err)
		}
		if err := env.WaitUntilFinished(ctx); err != nil {
			return false, fmt.Errorf("wait for batch of generator %d: %w", genIndex, err)
		}

		winner, ok := env.GetImprovingSuccessor()
		if !ok {
			continue
		}

		*current = winner.State
		*commits = append(*commits, CommitRecord{
			GeneratorIndex: genIndex,
			ChangeLabel:    winner.ChangeLabel,
			Timestamp:      time.Now(),
		})
		return true, nil
	}
}
