package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kinds of ParseError.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseError is a definition file that could not be read or decoded.
type ParseError struct {
	Path string
	// Line and Column are 1-based, 0 when unknown
	Line    int
	Column  int
	Message string
	// Type is one of the ErrorType constants
	Type string
}

// Error renders the error as "path:line:column: message", leaving out the
// parts that are unknown. Without a path the position reads "line 3:7".
func (e ParseError) Error() string {
	var pos string
	if e.Line > 0 {
		pos = strconv.Itoa(e.Line)
		if e.Column > 0 {
			pos += ":" + strconv.Itoa(e.Column)
		}
	}
	switch {
	case e.Path != "" && pos != "":
		return e.Path + ":" + pos + ": " + e.Message
	case e.Path != "":
		return e.Path + ": " + e.Message
	case pos != "":
		return "line " + pos + ": " + e.Message
	}
	return e.Message
}

// ParseResult is the outcome of decoding one definition.
type ParseResult struct {
	// Data is the decoded top-level mapping, nil on error or empty input
	Data     map[string]interface{}
	Errors   []ParseError
	FilePath string
	Format   string
}

// IsValid reports whether decoding succeeded.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidationError is a schema violation at a JSON pointer of the definition.
type ValidationError struct {
	// Path is a JSON pointer such as "/stages/2/suffix"
	Path string
	// Keyword is the failing schema keyword, simplified: required, type,
	// enum, range, pattern, additionalProperties or validation
	Keyword string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Stage returns the index of the stage the error points into.
func (e ValidationError) Stage() (int, bool) {
	rest, ok := strings.CutPrefix(e.Path, "/stages/")
	if !ok {
		return 0, false
	}
	index, _, _ := strings.Cut(rest, "/")
	i, err := strconv.Atoi(index)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Result is the outcome of parsing then validating a definition. Validation
// only runs when parsing succeeded.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid reports whether the definition parsed and validated cleanly.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors lists parse errors first, then validation errors.
func (r *Result) AllErrors() []error {
	var all []error
	for _, e := range r.ParseErrors {
		all = append(all, e)
	}
	for _, e := range r.ValidationErrors {
		all = append(all, e)
	}
	return all
}

// Err joins AllErrors, or returns nil for a valid result.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	joined := errors.Join(r.AllErrors()...)
	if r.FilePath == "" {
		return fmt.Errorf("invalid definition: %w", joined)
	}
	return fmt.Errorf("invalid definition %s: %w", r.FilePath, joined)
}
