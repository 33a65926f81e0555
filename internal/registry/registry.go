// Package registry maps module type strings to constructors.
//
// Sources, stages and outputs each have their own registry. The factory
// looks constructors up by the "type" field of a definition; adding a module
// type only requires registering its constructor:
//
//	func init() {
//	    registry.RegisterStage("dedupe", func(cfg definition.ModuleConfig, index int) (pipeline.Stage, error) {
//	        return NewDedupeFromConfig(cfg.Config)
//	    })
//	}
//
// Built-in modules are registered in builtins.go. Unknown types have no
// fallback: the factory reports them as configuration errors.
package registry

import (
	"sort"
	"sync"

	"github.com/canectors/wrangle/internal/modules/input"
	"github.com/canectors/wrangle/internal/modules/output"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/pipeline"
)

// InputConstructor creates a source module from its configuration.
type InputConstructor func(cfg *definition.ModuleConfig) (input.Module, error)

// StageConstructor creates a pipeline stage from its configuration and its
// position in the stage list.
type StageConstructor func(cfg definition.ModuleConfig, index int) (pipeline.Stage, error)

// OutputConstructor creates an output module from its configuration.
type OutputConstructor func(cfg *definition.ModuleConfig) (output.Module, error)

// registry is a concurrency-safe map of constructors.
type registry[C any] struct {
	mu sync.RWMutex
	m  map[string]C
}

func newRegistry[C any]() *registry[C] {
	return &registry[C]{m: make(map[string]C)}
}

func (r *registry[C]) register(moduleType string, c C) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[moduleType] = c
}

func (r *registry[C]) get(moduleType string) (C, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[moduleType]
	return c, ok
}

func (r *registry[C]) types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.m))
	for t := range r.m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (r *registry[C]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = make(map[string]C)
}

var (
	inputs  = newRegistry[InputConstructor]()
	stages  = newRegistry[StageConstructor]()
	outputs = newRegistry[OutputConstructor]()
)

// RegisterInput registers a source constructor, replacing any constructor
// already registered for moduleType. Safe for concurrent use.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputs.register(moduleType, constructor)
}

// RegisterStage registers a stage constructor, replacing any constructor
// already registered for moduleType. Safe for concurrent use.
func RegisterStage(moduleType string, constructor StageConstructor) {
	stages.register(moduleType, constructor)
}

// RegisterOutput registers an output constructor, replacing any constructor
// already registered for moduleType. Safe for concurrent use.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputs.register(moduleType, constructor)
}

// GetInputConstructor returns the source constructor for moduleType, or nil.
func GetInputConstructor(moduleType string) InputConstructor {
	c, _ := inputs.get(moduleType)
	return c
}

// GetStageConstructor returns the stage constructor for moduleType, or nil.
func GetStageConstructor(moduleType string) StageConstructor {
	c, _ := stages.get(moduleType)
	return c
}

// GetOutputConstructor returns the output constructor for moduleType, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor {
	c, _ := outputs.get(moduleType)
	return c
}

// ListInputTypes returns the registered source types, sorted.
func ListInputTypes() []string { return inputs.types() }

// ListStageTypes returns the registered stage types, sorted.
func ListStageTypes() []string { return stages.types() }

// ListOutputTypes returns the registered output types, sorted.
func ListOutputTypes() []string { return outputs.types() }

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	inputs.clear()
	stages.clear()
	outputs.clear()
}

// RegisterBuiltins registers every built-in module again. Tests that clear
// the registries use it to restore them.
func RegisterBuiltins() {
	registerBuiltinInputModules()
	registerBuiltinStageModules()
	registerBuiltinOutputModules()
}
