// Package definition provides the public types that describe a wrangling
// pipeline and the result of running one.
// This package is intended to be importable by projects that build pipeline
// definitions programmatically instead of loading them from a file.
package definition

import "time"

// Pipeline is a complete pipeline definition: where the table comes from,
// the stages applied to it, and where the result goes.
type Pipeline struct {
	// Name is the human-readable name of the pipeline
	Name string `json:"name"`

	// Description provides additional context about the pipeline
	Description string `json:"description,omitempty"`

	// Version is the pipeline definition version
	Version string `json:"version,omitempty"`

	// Source defines the input module that produces the initial table
	Source *ModuleConfig `json:"source"`

	// Stages is the ordered list of transformations
	Stages []ModuleConfig `json:"stages,omitempty"`

	// Output defines the output module. When nil the result is only previewed.
	Output *ModuleConfig `json:"output,omitempty"`

	// BaseDir is the directory relative paths are resolved against.
	// It is set by the loader, never read from the file.
	BaseDir string `json:"-"`
}

// ModuleConfig is the configuration of one source, stage or output.
type ModuleConfig struct {
	// Type identifies the module (e.g. "textFile", "parse", "sort")
	Type string `json:"type"`

	// Config holds the module-specific settings
	Config map[string]interface{} `json:"config,omitempty"`
}

// ExecutionResult is the outcome of running a pipeline.
type ExecutionResult struct {
	// PipelineName is the name of the executed pipeline
	PipelineName string `json:"pipelineName"`

	// Status is "success" or "error"
	Status string `json:"status"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	// RowsIn is the row count of the loaded table
	RowsIn int `json:"rowsIn"`

	// RowsOut is the row count after the last stage
	RowsOut int `json:"rowsOut"`

	// Columns lists the result columns in order
	Columns []string `json:"columns,omitempty"`

	// RowsWritten is the number of rows handed to the output module
	RowsWritten int `json:"rowsWritten"`

	// Stages reports every stage that completed, in order
	Stages []StageReport `json:"stages,omitempty"`

	// DryRunPreview describes what the output would have written in dry-run mode
	DryRunPreview *OutputPreview `json:"dryRunPreview,omitempty"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// OutputPreview is the dry-run rendering of an output module.
type OutputPreview struct {
	Destination string `json:"destination"`
	RowCount    int    `json:"rowCount"`
	Body        string `json:"body,omitempty"`
}

// StageReport describes one completed stage.
type StageReport struct {
	Index    int           `json:"index"`
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Columns  []string      `json:"columns"`
	Duration time.Duration `json:"duration"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the stable error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is "source", "stage" or "output"
	Module string `json:"module,omitempty"`

	// Category is the error category assigned by classification
	Category string `json:"category,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
