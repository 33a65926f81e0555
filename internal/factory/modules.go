// Package factory builds runnable modules from a pipeline definition.
// It looks constructors up in the registry by module type; an unregistered
// type is a configuration error.
//
// To add a module type, register its constructor (see internal/registry).
// The factory itself does not need to change.
package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/canectors/wrangle/internal/errhandling"
	"github.com/canectors/wrangle/internal/modules/input"
	"github.com/canectors/wrangle/internal/modules/output"
	"github.com/canectors/wrangle/internal/registry"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/pipeline"
)

// ErrUnknownModuleType is wrapped when a definition names an unregistered type.
var ErrUnknownModuleType = errors.New("unknown module type")

// Modules holds everything needed to run a pipeline definition.
type Modules struct {
	Input    input.Module
	Pipeline pipeline.Pipeline
	// Output is nil when the definition has no output
	Output output.Module
}

// Close closes the source and output modules, returning the first error.
func (m *Modules) Close() error {
	var errs []error
	if m.Input != nil {
		errs = append(errs, m.Input.Close())
	}
	if m.Output != nil {
		errs = append(errs, m.Output.Close())
	}
	return errors.Join(errs...)
}

// CreateModules builds the source, the stage pipeline and the output of def.
func CreateModules(def *definition.Pipeline) (*Modules, error) {
	if def == nil {
		return nil, errhandling.NewConfigError("pipeline definition is nil", nil)
	}

	in, err := CreateInputModule(def.Source)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errhandling.NewConfigError("pipeline definition has no source", nil)
	}

	p, err := CreateStages(def.Stages)
	if err != nil {
		in.Close()
		return nil, err
	}

	out, err := CreateOutputModule(def.Output)
	if err != nil {
		in.Close()
		return nil, err
	}

	return &Modules{Input: in, Pipeline: p, Output: out}, nil
}

// CreateInputModule creates a source module from configuration.
// A nil configuration yields a nil module.
func CreateInputModule(cfg *definition.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, nil
	}
	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownType("source", cfg.Type, registry.ListInputTypes())
	}
	m, err := constructor(cfg)
	if err != nil {
		return nil, errhandling.NewConfigError(fmt.Sprintf("invalid %s source", cfg.Type), err)
	}
	return m, nil
}

// CreateStages creates the pipeline made of the configured stages, in order.
func CreateStages(cfgs []definition.ModuleConfig) (pipeline.Pipeline, error) {
	stages := make([]pipeline.Stage, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetStageConstructor(cfg.Type)
		if constructor == nil {
			return pipeline.Pipeline{}, unknownType(fmt.Sprintf("stage %d", i), cfg.Type, registry.ListStageTypes())
		}
		stage, err := constructor(cfg, i)
		if err != nil {
			return pipeline.Pipeline{}, errhandling.NewConfigError(fmt.Sprintf("stage %d", i), err)
		}
		stages = append(stages, stage)
	}
	return pipeline.New(stages...), nil
}

// CreateOutputModule creates an output module from configuration.
// A nil configuration yields a nil module.
func CreateOutputModule(cfg *definition.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, nil
	}
	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, unknownType("output", cfg.Type, registry.ListOutputTypes())
	}
	m, err := constructor(cfg)
	if err != nil {
		return nil, errhandling.NewConfigError(fmt.Sprintf("invalid %s output", cfg.Type), err)
	}
	return m, nil
}

func unknownType(what, moduleType string, known []string) error {
	sort.Strings(known)
	return errhandling.NewConfigError(
		fmt.Sprintf("%s: %q (known types: %s)", what, moduleType, strings.Join(known, ", ")),
		ErrUnknownModuleType,
	)
}
