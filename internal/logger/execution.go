package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys used by the execution events.
const (
	KeyPipeline   = "pipeline_name"
	KeySource     = "source"
	KeyPhase      = "phase"
	KeyStageType  = "stage_type"
	KeyStageIndex = "stage_index"
	KeyStage      = "stage"
	KeyColumn     = "column"
	KeyRow        = "row"
	KeyRowCount   = "row_count"
	KeyDuration   = "duration"
	KeyErrorCode  = "error_code"
	KeyError      = "error"
)

// ExecutionContext locates a log record within a pipeline run.
type ExecutionContext struct {
	PipelineName string
	// Source describes where the table was loaded from
	Source string
	// Phase is "source", "stage" or "output"
	Phase string
	// StageType, StageName and StageIndex are set for individual stages only
	StageType  string
	StageName  string
	StageIndex int
}

// InPhase returns a copy of c for phase.
func (c ExecutionContext) InPhase(phase string) ExecutionContext {
	c.Phase = phase
	return c
}

// AtStage returns a copy of c positioned on stage i.
func (c ExecutionContext) AtStage(i int, kind, name string) ExecutionContext {
	c.StageIndex = i
	c.StageType = kind
	c.StageName = name
	return c
}

// attrs lists the non-empty fields of c. The stage index is only meaningful
// next to a stage type and is omitted otherwise.
func (c ExecutionContext) attrs() []any {
	out := make([]any, 0, 6)
	add := func(key, value string) {
		if value != "" {
			out = append(out, slog.String(key, value))
		}
	}
	add(KeyPipeline, c.PipelineName)
	add(KeySource, c.Source)
	add(KeyPhase, c.Phase)
	if c.StageType != "" {
		out = append(out, slog.String(KeyStageType, c.StageType), slog.Int(KeyStageIndex, c.StageIndex))
	}
	add(KeyStage, c.StageName)
	return out
}

// WithExecution returns Logger annotated with c.
func WithExecution(c ExecutionContext) *slog.Logger {
	return Logger.With(c.attrs()...)
}

// LogExecutionStart records the beginning of a run.
func LogExecutionStart(c ExecutionContext) {
	Logger.Info("execution started", c.attrs()...)
}

// LogExecutionEnd records the end of a run with its final row count.
func LogExecutionEnd(c ExecutionContext, status string, rowCount int, d time.Duration) {
	Logger.Info("execution completed", append(c.attrs(),
		slog.String("status", status),
		slog.Int(KeyRowCount, rowCount),
		slog.Duration(KeyDuration, d),
	)...)
}

// LogStageStart records the beginning of a phase or stage at debug level.
func LogStageStart(c ExecutionContext) {
	Logger.Debug("stage started", c.attrs()...)
}

// Failure is the outcome of a failed phase, as passed to LogStageEnd.
type Failure struct {
	Code string
	Err  error
}

// LogStageEnd records the end of a phase or stage. A non-nil failure turns
// the record into an error.
func LogStageEnd(c ExecutionContext, rowCount int, d time.Duration, failure *Failure) {
	attrs := append(c.attrs(), slog.Int(KeyRowCount, rowCount), slog.Duration(KeyDuration, d))
	if failure == nil {
		Logger.Info("stage completed", attrs...)
		return
	}
	attrs = append(attrs, slog.String(KeyErrorCode, failure.Code))
	if failure.Err != nil {
		attrs = append(attrs, slog.String(KeyError, failure.Err.Error()))
	}
	Logger.Error("stage failed", attrs...)
}

// ExecutionMetrics summarizes a successful run.
type ExecutionMetrics struct {
	TotalDuration     time.Duration
	LoadDuration      time.Duration
	TransformDuration time.Duration
	WriteDuration     time.Duration
	RowsIn            int
	RowsOut           int
	StageCount        int
}

// RowsPerSecond is the load-to-output throughput measured on RowsIn.
func (m ExecutionMetrics) RowsPerSecond() float64 {
	if m.RowsIn == 0 || m.TotalDuration <= 0 {
		return 0
	}
	return float64(m.RowsIn) / m.TotalDuration.Seconds()
}

// LogMetrics records the timings of a run.
func LogMetrics(c ExecutionContext, m ExecutionMetrics) {
	Logger.Info("execution metrics", append(c.attrs(),
		slog.Duration("total_duration", m.TotalDuration),
		slog.Duration("load_duration", m.LoadDuration),
		slog.Duration("transform_duration", m.TransformDuration),
		slog.Duration("write_duration", m.WriteDuration),
		slog.Int("rows_in", m.RowsIn),
		slog.Int("rows_out", m.RowsOut),
		slog.Int("stage_count", m.StageCount),
		slog.Float64("rows_per_second", m.RowsPerSecond()),
	)...)
}

// ErrorContext describes a failure down to the offending cell.
type ErrorContext struct {
	ExecutionContext
	Code string
	Err  error
	// Column and Row locate the cell; Row is -1 when unknown
	Column   string
	Row      int
	Duration time.Duration
}

// LogError records err with its execution context, cell location and the
// chain of wrapped messages.
func LogError(msg string, ec ErrorContext) {
	attrs := ec.ExecutionContext.attrs()
	if ec.Code != "" {
		attrs = append(attrs, slog.String(KeyErrorCode, ec.Code))
	}
	if ec.Err != nil {
		attrs = append(attrs,
			slog.String(KeyError, ec.Err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", ec.Err)),
		)
		if chain := unwrapChain(ec.Err); len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	if ec.Column != "" {
		attrs = append(attrs, slog.String(KeyColumn, ec.Column))
	}
	if ec.Row >= 0 {
		attrs = append(attrs, slog.Int(KeyRow, ec.Row))
	}
	if ec.Duration > 0 {
		attrs = append(attrs, slog.Duration(KeyDuration, ec.Duration))
	}
	Logger.Error(msg, attrs...)
}

func unwrapChain(err error) []string {
	var chain []string
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	return chain
}
