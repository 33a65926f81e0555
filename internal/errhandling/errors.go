// Package errhandling classifies errors raised while loading, transforming and
// writing tables.
//
// Classification maps any error to an ErrorCategory and a stable error code
// used in execution results, logs and CLI exit codes. Nothing is retried: a
// pipeline either completes or fails on the first error.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategorySchema is a row/column shape mismatch at load or construction.
	CategorySchema ErrorCategory = "schema"

	// CategoryUnknownColumn is a reference to a column the table lacks.
	CategoryUnknownColumn ErrorCategory = "unknown_column"

	// CategoryParse is a cell that cannot be converted to the requested type.
	CategoryParse ErrorCategory = "parse"

	// CategoryType is an operation applied to a column of the wrong kind.
	CategoryType ErrorCategory = "type"

	// CategoryLengthMismatch is a derived column with the wrong number of values.
	CategoryLengthMismatch ErrorCategory = "length_mismatch"

	// CategoryInvariant is a stage that broke the guarantees of its kind.
	CategoryInvariant ErrorCategory = "invariant"

	// CategoryIO is a file that cannot be read or written.
	CategoryIO ErrorCategory = "io"

	// CategoryConfig is an invalid pipeline definition.
	CategoryConfig ErrorCategory = "config"

	// CategoryCanceled is an execution stopped by its context.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// Stable error codes, one per category.
const (
	CodeSchema         = "SCHEMA_ERROR"
	CodeUnknownColumn  = "UNKNOWN_COLUMN"
	CodeParse          = "PARSE_ERROR"
	CodeType           = "TYPE_ERROR"
	CodeLengthMismatch = "LENGTH_MISMATCH"
	CodeInvariant      = "INVARIANT_VIOLATION"
	CodeIO             = "IO_ERROR"
	CodeConfig         = "CONFIG_ERROR"
	CodeCanceled       = "CANCELED"
	CodeUnknown        = "UNKNOWN_ERROR"
)

var categoryCodes = map[ErrorCategory]string{
	CategorySchema:         CodeSchema,
	CategoryUnknownColumn:  CodeUnknownColumn,
	CategoryParse:          CodeParse,
	CategoryType:           CodeType,
	CategoryLengthMismatch: CodeLengthMismatch,
	CategoryInvariant:      CodeInvariant,
	CategoryIO:             CodeIO,
	CategoryConfig:         CodeConfig,
	CategoryCanceled:       CodeCanceled,
	CategoryUnknown:        CodeUnknown,
}

// Code returns the stable error code of the category.
func (c ErrorCategory) Code() string {
	if code, ok := categoryCodes[c]; ok {
		return code
	}
	return CodeUnknown
}

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Column and Row locate the offending cell when known; Row is -1 otherwise.
	Column string
	Row    int

	// StageIndex is the failing pipeline stage, -1 outside the transform phase.
	StageIndex int

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// Code returns the stable error code of the error's category.
func (e *ClassifiedError) Code() string {
	return e.Category.Code()
}

// NewConfigError creates a ClassifiedError for an invalid pipeline definition.
func NewConfigError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryConfig,
		Message:     message,
		Row:         -1,
		StageIndex:  -1,
		OriginalErr: originalErr,
	}
}

// NewIOError creates a ClassifiedError for a file that cannot be read or written.
func NewIOError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Message:     message,
		Row:         -1,
		StageIndex:  -1,
		OriginalErr: originalErr,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned unchanged; typed table errors are
// recognized anywhere in the wrap chain.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	result := &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		Row:         -1,
		StageIndex:  -1,
		OriginalErr: err,
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		result.StageIndex = stageErr.Index
	}

	var (
		parseErr   *table.ParseError
		unknownErr *table.UnknownColumnError
		typeErr    *table.TypeError
		lengthErr  *table.LengthMismatchError
		pathErr    *fs.PathError
	)
	switch {
	case errors.As(err, &parseErr):
		result.Category = CategoryParse
		result.Column = parseErr.Column
		result.Row = parseErr.Row
	case errors.As(err, &unknownErr):
		result.Category = CategoryUnknownColumn
		result.Column = unknownErr.Column
	case errors.As(err, &typeErr):
		result.Category = CategoryType
		result.Column = typeErr.Column
	case errors.As(err, &lengthErr):
		result.Category = CategoryLengthMismatch
		result.Column = lengthErr.Column
	case errors.Is(err, table.ErrSchema):
		result.Category = CategorySchema
	case errors.Is(err, pipeline.ErrInvariant):
		result.Category = CategoryInvariant
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result.Category = CategoryCanceled
	case errors.As(err, &pathErr):
		result.Category = CategoryIO
	}
	return result
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsDataError reports whether err was caused by the table contents or by
// references to them (schema, unknown column, parse, type, length).
func IsDataError(err error) bool {
	switch GetErrorCategory(err) {
	case CategorySchema, CategoryUnknownColumn, CategoryParse, CategoryType, CategoryLengthMismatch:
		return true
	default:
		return false
	}
}

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitConfigError  = 1
	ExitParseError   = 2
	ExitRuntimeError = 3
	ExitDataError    = 4
)

// ExitCode maps an execution error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case IsDataError(err):
		return ExitDataError
	case GetErrorCategory(err) == CategoryConfig:
		return ExitConfigError
	default:
		return ExitRuntimeError
	}
}
