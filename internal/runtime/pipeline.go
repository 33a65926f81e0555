// Package runtime provides the pipeline execution engine.
// It orchestrates the three phases of a run: load the table from the source,
// apply the stages, and write the result to the output.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/canectors/wrangle/internal/errhandling"
	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/modules/input"
	"github.com/canectors/wrangle/internal/modules/output"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// Error codes for pipeline execution errors
const (
	ErrCodeSourceFailed    = "SOURCE_FAILED"
	ErrCodeTransformFailed = "TRANSFORM_FAILED"
	ErrCodeOutputFailed    = "OUTPUT_FAILED"
	ErrCodeInvalidInput    = "INVALID_INPUT"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Execution phases, as reported in logs and ExecutionError.Module
const (
	PhaseLoad      = "source"
	PhaseTransform = "stage"
	PhaseWrite     = "output"
)

// Common errors
var (
	// ErrNilPipeline is returned when the pipeline definition is nil
	ErrNilPipeline = errors.New("pipeline definition is nil")

	// ErrNilInputModule is returned when the source module is nil
	ErrNilInputModule = errors.New("source module is nil")
)

// Executor runs a pipeline definition: Source → Stages → Output.
//
// The Executor only talks to modules through their interfaces. The output
// module is optional; without one the result table is only returned to the
// caller (the CLI previews it).
type Executor struct {
	inputModule  input.Module
	stages       pipeline.Pipeline
	outputModule output.Module
	dryRun       bool
	previewRows  int
	observer     pipeline.Observer
}

// NewExecutor creates an executor without modules; they are set with
// NewExecutorWithModules in normal use.
func NewExecutor(dryRun bool) *Executor {
	return &Executor{dryRun: dryRun}
}

// NewExecutorWithModules creates an executor with all modules configured.
//
// Parameters:
//   - inputModule: the source producing the initial table
//   - stages: the transformations applied in order (may be empty)
//   - outputModule: where the result is written (may be nil)
//   - dryRun: if true, the output is previewed instead of written
func NewExecutorWithModules(
	inputModule input.Module,
	stages pipeline.Pipeline,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		inputModule:  inputModule,
		stages:       stages,
		outputModule: outputModule,
		dryRun:       dryRun,
	}
}

// SetObserver registers a callback run after every successful stage.
func (e *Executor) SetObserver(observe pipeline.Observer) {
	e.observer = observe
}

// SetPreviewRows sets how many rows a dry-run preview shows.
func (e *Executor) SetPreviewRows(n int) {
	e.previewRows = n
}

// phaseTimings holds timing measurements for each execution phase
type phaseTimings struct {
	load      time.Duration
	transform time.Duration
	write     time.Duration
}

// Execute runs def with a background context.
// For cancellation support, use ExecuteWithContext instead.
func (e *Executor) Execute(def *definition.Pipeline) (*definition.ExecutionResult, error) {
	return e.ExecuteWithContext(context.Background(), def)
}

// ExecuteWithContext runs def and returns the execution result.
func (e *Executor) ExecuteWithContext(ctx context.Context, def *definition.Pipeline) (*definition.ExecutionResult, error) {
	_, result, err := e.Run(ctx, def)
	return result, err
}

// Run executes the pipeline and also returns the result table.
//
// Execution flow:
//  1. Validate the definition and modules
//  2. Load the table from the source
//  3. Apply the stages in order; the first failing stage stops the run
//  4. Write the result (or preview it in dry-run mode) when an output is set
//
// The source is closed right after loading; the output at the end of the run.
// On error the result table is nil and the ExecutionResult carries the
// classified error.
func (e *Executor) Run(ctx context.Context, def *definition.Pipeline) (*table.Table, *definition.ExecutionResult, error) {
	startedAt := time.Now()
	result := &definition.ExecutionResult{StartedAt: startedAt, Status: StatusError}
	var timings phaseTimings

	if err := e.validateExecution(def, result); err != nil {
		return nil, result, err
	}
	result.PipelineName = def.Name

	execCtx := logger.ExecutionContext{
		PipelineName: def.Name,
		Source:       e.inputModule.Describe(),
		StageIndex:   -1,
	}
	logger.LogExecutionStart(execCtx)

	if e.outputModule != nil {
		defer e.closeModule(def.Name, PhaseWrite, e.outputModule)
	}

	loaded, err := e.executeInput(ctx, execCtx, result, &timings)
	e.closeModule(def.Name, PhaseLoad, e.inputModule)
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return nil, result, err
	}

	transformed, err := e.executeStages(ctx, execCtx, loaded, result, &timings)
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, loaded.Len(), time.Since(startedAt))
		return nil, result, err
	}

	if err := e.executeOutput(ctx, execCtx, transformed, result, &timings); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, transformed.Len(), time.Since(startedAt))
		return nil, result, err
	}

	e.finalizeSuccessWithMetrics(result, startedAt, execCtx, timings)
	return transformed, result, nil
}

// buildExecutionError creates an ExecutionError with the classified category.
func buildExecutionError(code, module string, err error) *definition.ExecutionError {
	cl := errhandling.ClassifyError(err)
	ex := &definition.ExecutionError{
		Code:     code,
		Message:  err.Error(),
		Module:   module,
		Category: string(cl.Category),
	}
	details := map[string]interface{}{"errorCode": cl.Code()}
	if cl.Column != "" {
		details["column"] = cl.Column
	}
	if cl.Row >= 0 {
		details["row"] = cl.Row
	}
	if cl.StageIndex >= 0 {
		details["stageIndex"] = cl.StageIndex
	}
	ex.Details = details
	return ex
}

// fail records err in result and returns it.
func fail(result *definition.ExecutionResult, code, module string, err error) error {
	result.CompletedAt = time.Now()
	result.Error = buildExecutionError(code, module, err)
	return err
}

// validateExecution validates the definition and modules before execution.
func (e *Executor) validateExecution(def *definition.Pipeline, result *definition.ExecutionResult) error {
	if def == nil {
		logger.Error("pipeline execution failed: nil pipeline definition")
		return fail(result, ErrCodeInvalidInput, "", ErrNilPipeline)
	}
	if e.inputModule == nil {
		logger.Error("pipeline execution failed: source module is nil",
			slog.String("pipeline_name", def.Name))
		return fail(result, ErrCodeInvalidInput, PhaseLoad, ErrNilInputModule)
	}
	return nil
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(pipelineName, phase string, m interface{ Close() error }) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("pipeline_name", pipelineName),
			slog.String("phase", phase),
			slog.String("error", err.Error()),
		)
	}
}

// executeInput loads the table from the source module.
func (e *Executor) executeInput(ctx context.Context, execCtx logger.ExecutionContext, result *definition.ExecutionResult, timings *phaseTimings) (*table.Table, error) {
	stageCtx := execCtx.InPhase(PhaseLoad)
	logger.LogStageStart(stageCtx)

	start := time.Now()
	t, err := e.inputModule.Fetch(ctx)
	timings.load = time.Since(start)

	if err != nil {
		err = fail(result, ErrCodeSourceFailed, PhaseLoad, err)
		logger.LogStageEnd(stageCtx, 0, timings.load, &logger.Failure{Code: errhandling.ClassifyError(err).Code(), Err: err})
		return nil, fmt.Errorf("loading source %s: %w", e.inputModule.Describe(), err)
	}

	result.RowsIn = t.Len()
	logger.LogStageEnd(stageCtx, t.Len(), timings.load, nil)
	return t, nil
}

// executeStages applies the stage pipeline, logging and recording every
// completed stage.
func (e *Executor) executeStages(ctx context.Context, execCtx logger.ExecutionContext, t *table.Table, result *definition.ExecutionResult, timings *phaseTimings) (*table.Table, error) {
	phaseCtx := execCtx.InPhase(PhaseTransform)
	logger.LogStageStart(phaseCtx)

	stages := e.stages.Stages()
	start := time.Now()
	last := start
	observe := func(i int, s pipeline.Stage, out *table.Table) {
		now := time.Now()
		report := definition.StageReport{
			Index:    i,
			Type:     s.Kind(),
			Name:     s.Name(),
			Rows:     out.Len(),
			Columns:  out.Names(),
			Duration: now.Sub(last),
		}
		last = now
		result.Stages = append(result.Stages, report)

		logger.LogStageEnd(phaseCtx.AtStage(i, s.Kind(), s.Name()), out.Len(), report.Duration, nil)

		if e.observer != nil {
			e.observer(i, s, out)
		}
	}

	out, err := e.stages.ApplyContext(ctx, t, observe)
	timings.transform = time.Since(start)

	if err != nil {
		err = fail(result, ErrCodeTransformFailed, PhaseTransform, err)
		cl := errhandling.ClassifyError(err)
		errCtx := logger.ErrorContext{
			ExecutionContext: phaseCtx,
			Code:             cl.Code(),
			Err:              err,
			Column:           cl.Column,
			Row:              cl.Row,
			Duration:         timings.transform,
		}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.Index < len(stages) {
			s := stages[stageErr.Index]
			errCtx.ExecutionContext = phaseCtx.AtStage(stageErr.Index, s.Kind(), s.Name())
		}
		logger.LogError("stage failed", errCtx)
		return nil, err
	}

	result.RowsOut = out.Len()
	result.Columns = out.Names()
	return out, nil
}

// executeOutput writes the result, or previews it in dry-run mode.
func (e *Executor) executeOutput(ctx context.Context, execCtx logger.ExecutionContext, t *table.Table, result *definition.ExecutionResult, timings *phaseTimings) error {
	if e.outputModule == nil {
		logger.Debug("no output module configured; result kept in memory",
			slog.String("pipeline_name", execCtx.PipelineName),
			slog.Int("row_count", t.Len()),
		)
		return nil
	}

	if e.dryRun {
		result.DryRunPreview = e.executeDryRunPreview(execCtx.PipelineName, t)
		return nil
	}

	stageCtx := execCtx.InPhase(PhaseWrite)
	logger.LogStageStart(stageCtx)

	start := time.Now()
	written, err := e.outputModule.Send(ctx, t)
	timings.write = time.Since(start)
	result.RowsWritten = written

	if err != nil {
		err = fail(result, ErrCodeOutputFailed, PhaseWrite, err)
		logger.LogStageEnd(stageCtx, written, timings.write, &logger.Failure{Code: errhandling.ClassifyError(err).Code(), Err: err})
		return fmt.Errorf("writing output %s: %w", e.outputModule.Describe(), err)
	}

	logger.LogStageEnd(stageCtx, written, timings.write, nil)
	return nil
}

// executeDryRunPreview asks the output module what it would write.
// Returns nil if the output module doesn't implement PreviewableModule.
func (e *Executor) executeDryRunPreview(pipelineName string, t *table.Table) *definition.OutputPreview {
	previewable, ok := e.outputModule.(output.PreviewableModule)
	if !ok {
		logger.Debug("output module does not implement PreviewableModule, skipping preview",
			slog.String("pipeline_name", pipelineName),
		)
		return &definition.OutputPreview{Destination: e.outputModule.Describe(), RowCount: t.Len()}
	}

	p, err := previewable.Preview(t, output.PreviewOptions{Rows: e.previewRows})
	if err != nil {
		logger.Error("failed to generate dry-run preview",
			slog.String("pipeline_name", pipelineName),
			slog.Int("row_count", t.Len()),
			slog.String("error", err.Error()),
		)
		return &definition.OutputPreview{
			Destination: e.outputModule.Describe(),
			RowCount:    t.Len(),
			Body:        fmt.Sprintf("Failed to generate preview: %v", err),
		}
	}
	return &definition.OutputPreview{Destination: p.Destination, RowCount: p.RowCount, Body: p.Body}
}

// finalizeSuccessWithMetrics marks the execution as successful and logs
// completion with metrics.
func (e *Executor) finalizeSuccessWithMetrics(result *definition.ExecutionResult, startedAt time.Time, execCtx logger.ExecutionContext, timings phaseTimings) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	total := time.Since(startedAt)
	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RowsOut, total)
	logger.LogMetrics(execCtx, logger.ExecutionMetrics{
		TotalDuration:     total,
		LoadDuration:      timings.load,
		TransformDuration: timings.transform,
		WriteDuration:     timings.write,
		RowsIn:            result.RowsIn,
		RowsOut:           result.RowsOut,
		StageCount:        e.stages.Len(),
	})
}
