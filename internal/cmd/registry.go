package cmd

import (
	"fmt"

	"github.com/aibasel/machetli-go/pkg/machetli"
)

// GeneratorFactory builds one pipeline stage. Binaries embedding this
// package register the named generators their domain needs in an init()
// (or before calling Execute); machetli itself registers none, since
// reduction transformations are out of scope for this module.
type GeneratorFactory func() (machetli.SuccessorGenerator, error)

var generatorRegistry = map[string]GeneratorFactory{}

// RegisterGenerator makes factory available under name to the "search"
// command's --pipeline flag. Calling it twice with the same name replaces
// the earlier registration.
func RegisterGenerator(name string, factory GeneratorFactory) {
	generatorRegistry[name] = factory
}

// buildPipeline resolves a --pipeline flag value (an ordered list of
// registered generator names) into a machetli.GeneratorPipeline.
func buildPipeline(names []string) (machetli.GeneratorPipeline, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("cmd: --pipeline must name at least one registered generator")
	}
	pipeline := make(machetli.GeneratorPipeline, 0, len(names))
	for _, name := range names {
		factory, ok := generatorRegistry[name]
		if !ok {
			return nil, fmt.Errorf("cmd: unknown generator %q (no RegisterGenerator call registered it)", name)
		}
		gen, err := factory()
		if err != nil {
			return nil, fmt.Errorf("cmd: build generator %q: %w", name, err)
		}
		pipeline = append(pipeline, gen)
	}
	return pipeline, nil
}
