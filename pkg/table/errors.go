package table

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrSchema         = errors.New("schema error")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrParse          = errors.New("parse error")
	ErrType           = errors.New("type error")
	ErrLengthMismatch = errors.New("length mismatch")
)

// SchemaError reports a row/column shape mismatch at load or construction.
type SchemaError struct {
	// Line is the 1-based input line, 0 when the error is not tied to a file.
	Line    int
	Message string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema error at line %d: %s", e.Line, e.Message)
	}
	return "schema error: " + e.Message
}

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// UnknownColumnError reports a reference to a column that does not exist.
type UnknownColumnError struct {
	Column    string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("unknown column %q (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// Is matches ErrUnknownColumn.
func (e *UnknownColumnError) Is(target error) bool { return target == ErrUnknownColumn }

// ParseError reports cell content that cannot be converted to the requested type.
type ParseError struct {
	Column string
	// Row is the 0-based row index, -1 when unknown.
	Row   int
	Input string
	Want  string
	Err   error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("parse error")
	if e.Column != "" {
		sb.WriteString(fmt.Sprintf(" in column %q", e.Column))
	}
	if e.Row >= 0 {
		sb.WriteString(fmt.Sprintf(" at row %d", e.Row))
	}
	sb.WriteString(fmt.Sprintf(": cannot parse %q as %s", e.Input, e.Want))
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying conversion error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// TypeError reports an operation applied to a column of an incompatible kind.
type TypeError struct {
	Column string
	Op     string
	Got    Kind
	Want   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: %s on column %q requires %s, got %s", e.Op, e.Column, e.Want, e.Got)
}

// Is matches ErrType.
func (e *TypeError) Is(target error) bool { return target == ErrType }

// LengthMismatchError reports a column whose length disagrees with the row count.
type LengthMismatchError struct {
	Column string
	Got    int
	Want   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("length mismatch: column %q has %d values, table has %d rows", e.Column, e.Got, e.Want)
}

// Is matches ErrLengthMismatch.
func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }
