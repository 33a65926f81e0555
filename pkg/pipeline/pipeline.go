// Package pipeline composes table transformations into reusable pipelines.
//
// A Pipeline is an immutable, ordered list of stages. Append returns a new
// Pipeline, so a pipeline can be built one step at a time with every
// intermediate version still usable. Apply runs the stages in order and stops
// at the first error; since tables are immutable no partial result escapes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/canectors/wrangle/pkg/table"
)

// StageError wraps the error of a failing stage with its position.
type StageError struct {
	Index int
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Index, e.Stage, e.Err)
}

// Unwrap returns the stage's own error.
func (e *StageError) Unwrap() error { return e.Err }

// ErrInvariant is matched by InvariantError.
var ErrInvariant = errors.New("stage invariant violated")

// InvariantError reports a stage that changed the table in a way its kind forbids.
type InvariantError struct {
	Kind    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Kind, e.Message)
}

// Is matches ErrInvariant.
func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

// Observer is called after each successful stage with its index, the stage
// and its output.
type Observer func(index int, stage Stage, out *table.Table)

// Pipeline is an ordered, immutable sequence of stages.
// The zero value is an empty pipeline.
type Pipeline struct {
	stages []Stage
}

// New returns a pipeline made of stages.
func New(stages ...Stage) Pipeline {
	return Pipeline{stages: slices.Clone(stages)}
}

// Append returns a new pipeline with stage added at the end. p is unchanged.
func (p Pipeline) Append(stage Stage) Pipeline {
	next := make([]Stage, len(p.stages), len(p.stages)+1)
	copy(next, p.stages)
	return Pipeline{stages: append(next, stage)}
}

// Len returns the number of stages.
func (p Pipeline) Len() int { return len(p.stages) }

// Stages returns a copy of the stages.
func (p Pipeline) Stages() []Stage { return slices.Clone(p.stages) }

// Apply runs every stage in order against the output of the previous one.
func (p Pipeline) Apply(t *table.Table) (*table.Table, error) {
	return p.ApplyObserved(t, nil)
}

// ApplyObserved is Apply with a callback after every stage.
func (p Pipeline) ApplyObserved(t *table.Table, observe Observer) (*table.Table, error) {
	return p.ApplyContext(context.Background(), t, observe)
}

// ApplyContext is ApplyObserved that stops before the next stage once ctx
// is done. A stage already running is not interrupted.
func (p Pipeline) ApplyContext(ctx context.Context, t *table.Table, observe Observer) (*table.Table, error) {
	if t == nil {
		return nil, errors.New("pipeline: nil input table")
	}
	current := t
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Index: i, Stage: stage.Name(), Err: err}
		}
		out, err := stage.Apply(current)
		if err != nil {
			return nil, &StageError{Index: i, Stage: stage.Name(), Err: err}
		}
		if err := checkInvariants(stage.Kind(), current, out); err != nil {
			return nil, &StageError{Index: i, Stage: stage.Name(), Err: err}
		}
		if observe != nil {
			observe(i, stage, out)
		}
		current = out
	}
	return current, nil
}

// checkInvariants verifies the row-count and column guarantees of each stage kind.
func checkInvariants(kind string, in, out *table.Table) error {
	if out == nil {
		return &InvariantError{Kind: kind, Message: "returned no table"}
	}
	switch kind {
	case KindFilter:
		if out.Len() > in.Len() {
			return &InvariantError{Kind: kind, Message: fmt.Sprintf("row count grew from %d to %d", in.Len(), out.Len())}
		}
	case KindSort:
		if out.Len() != in.Len() || !slices.Equal(out.Names(), in.Names()) {
			return &InvariantError{Kind: kind, Message: "changed the row count or column set"}
		}
	default:
		if out.Len() != in.Len() {
			return &InvariantError{Kind: kind, Message: fmt.Sprintf("row count changed from %d to %d", in.Len(), out.Len())}
		}
	}
	return nil
}
